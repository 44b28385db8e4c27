// inspect dumps the message records of a stopped server's store.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"skillxchange/domain"
	"skillxchange/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	user := flag.String("user", "", "Only show messages sent or received by this user")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "ID", "Time", "From", "To", "Status", "Text"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = repositories.Messages(db, func(key string, m domain.Message, err error) error {
		if err != nil {
			fmt.Printf("Error decoding key %s: %v\n", key, err)
			return nil
		}
		if *user != "" && m.SenderID != *user && m.ReceiverID != *user {
			return nil
		}
		table.Append([]string{
			fmt.Sprint(m.Seq),
			m.ID.String()[:8],
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.SenderID,
			m.ReceiverID,
			m.Status.String(),
			m.Text,
		})
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		// Truncating needs a writable open, then retry read only
		repaired, repairErr := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
		if repairErr != nil {
			return nil, fmt.Errorf("repair failed: %w", repairErr)
		}
		_ = repaired.Close()
		return badger.Open(opts)
	}
	return db, err
}
