package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/abcfe/abcfe-metadata/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run tools/db_browser.go <db_path> [command]")
		fmt.Println("Commands:")
		fmt.Println("  addresses       - List every address holding a payload")
		fmt.Println("  entry <address> - Show the stored payload of one address")
		fmt.Println("  all             - Show all raw keys")
		return
	}

	dbPath := os.Args[1]
	command := "addresses"
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	db, err := storage.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Database opened: %s\n\n", dbPath)

	switch command {
	case "addresses":
		listAddresses(db)
	case "entry":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run tools/db_browser.go <db_path> entry <address>")
			return
		}
		showEntry(db, os.Args[3])
	case "all":
		showAllData(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
	}
}

func listAddresses(db *storage.DB) {
	fmt.Println("=== ADDRESSES ===")

	addresses, err := db.Addresses()
	if err != nil {
		fmt.Printf("Failed to list addresses: %v\n", err)
		return
	}

	for _, address := range addresses {
		entry, err := db.Get(address)
		if err != nil {
			fmt.Printf("%s: %v\n", address, err)
			continue
		}
		fmt.Printf("%s: type=%d writes=%d magic=%s\n",
			address, entry.Payload.TypeID, entry.WriteCount, hex.EncodeToString(entry.MagicHash[:]))
	}
	fmt.Printf("Total addresses: %d\n\n", len(addresses))
}

func showEntry(db *storage.DB, address string) {
	fmt.Printf("=== ENTRY %s ===\n", address)

	entry, err := db.Get(address)
	if err != nil {
		fmt.Printf("Entry not found: %v\n", err)
		return
	}

	p := entry.Payload
	fmt.Printf("Version: %d\n", p.Version)
	fmt.Printf("Type ID: %d\n", p.TypeID)
	fmt.Printf("Write Count: %d\n", entry.WriteCount)
	fmt.Printf("Magic Hash: %s\n", hex.EncodeToString(entry.MagicHash[:]))
	if p.PrevMagicHash != "" {
		fmt.Printf("Prev Magic Hash: %s\n", p.PrevMagicHash)
	}
	fmt.Printf("Signature: %s\n", p.Signature)
	fmt.Printf("Payload Size: %d chars (base64)\n", len(p.Payload))
	fmt.Println()
}

func showAllData(db *storage.DB) {
	fmt.Println("=== ALL DATABASE DATA ===")

	count := 0
	err := db.RawEntries(func(key, value []byte) bool {
		fmt.Printf("[%d] Key: %s\n", count, key)
		fmt.Printf("     Value Size: %d bytes\n", len(value))
		if len(value) <= 100 {
			fmt.Printf("     Value (hex): %s\n", hex.EncodeToString(value))
		} else {
			fmt.Printf("     Value (hex): %s...\n", hex.EncodeToString(value[:50]))
		}
		fmt.Println()

		count++
		if count >= 50 {
			fmt.Printf("... (showing first 50 entries)\n")
			return false
		}
		return true
	})
	if err != nil {
		fmt.Printf("Iteration failed: %v\n", err)
	}

	fmt.Printf("Total entries: %d\n", count)
}
