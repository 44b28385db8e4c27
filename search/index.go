// Package search keeps a full-text index of persisted messages.
// The message store stays the source of truth: the index only returns ids.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skillxchange/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

const (
	fieldText         = "text"
	fieldConversation = "conversation"
	defaultLimit      = 20
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Index adds or replaces the message in the index.
func (i *Index) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField(fieldText, message.Text)).
		AddField(bluge.NewKeywordField(fieldConversation, conversation(message.SenderID, message.ReceiverID)))
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", message.ID, err)
	}
	return nil
}

// Search returns the ids of the messages of the conversation matching terms,
// best match first.
func (i *Index) Search(ctx context.Context, viewerID, counterpartID, terms string, limit int) ([]uuid.UUID, error) {
	if strings.TrimSpace(terms) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField(fieldText)).
		AddMust(bluge.NewTermQuery(conversation(viewerID, counterpartID)).SetField(fieldConversation))

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != "_id" {
				return true
			}
			id, parseErr := uuid.ParseBytes(value)
			if parseErr != nil {
				i.log.Warn("Unreadable id in search index", "value", string(value))
				return false
			}
			ids = append(ids, id)
			return false
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func conversation(a, b string) string {
	low, high := domain.Participants(a, b)
	return low + "\x00" + high
}
