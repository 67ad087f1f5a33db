package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abcfe/abcfe-metadata/api/client"
	"github.com/abcfe/abcfe-metadata/metadata"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/tyler-smith/go-bip39"
)

const (
	BaseURL = "http://localhost:8600"
)

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func main() {
	fmt.Println("=== Starting Metadata API Test ===")
	ctx := context.Background()

	// 1. Fresh wallet so every address starts empty
	fmt.Println("\n[1] Creating separate wallet...")
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		panic(err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Mnemonic: %s\n", mnemonic)

	c := client.New(BaseURL, 10*time.Second)
	svc := metadata.NewService(metadata.StaticSeed(bip39.NewSeed(mnemonic, "")), c)

	address, err := svc.Address(ctx, prt.EntryTypeContacts)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Contacts address: %s\n", address)

	// 2. Nothing stored yet
	fmt.Println("\n[2] GET on an empty address...")
	code, body := doRequest(http.MethodGet, BaseURL+"/metadata/"+address, nil)
	fmt.Printf("Status: %d Body: %s\n", code, body)
	expect(code == http.StatusNotFound, "expected 404 before the first save")

	// 3. First write, then a chained write
	fmt.Println("\n[3] Saving two versions...")
	if err := svc.Save(ctx, prt.EntryTypeContacts, `{"contacts":["alice"]}`); err != nil {
		panic(fmt.Sprintf("first save failed: %v", err))
	}
	first, err := c.Get(ctx, address)
	if err != nil {
		panic(err)
	}
	if err := svc.Save(ctx, prt.EntryTypeContacts, `{"contacts":["alice","bob"]}`); err != nil {
		panic(fmt.Sprintf("second save failed: %v", err))
	}

	magic, err := c.MagicHash(ctx, address)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Current magic hash: %s\n", magic)

	// 4. Replaying the first payload must be refused as stale
	fmt.Println("\n[4] Replaying the first payload...")
	replay, _ := json.Marshal(first)
	code, body = doRequest(http.MethodPut, BaseURL+"/metadata/"+address, replay)
	fmt.Printf("Status: %d Body: %s\n", code, body)
	expect(code == http.StatusNotFound, "expected 404 for a stale replay")

	// 5. Read back
	fmt.Println("\n[5] Loading...")
	doc, found, err := svc.Load(ctx, prt.EntryTypeContacts)
	if err != nil || !found {
		panic(fmt.Sprintf("load failed: found=%v err=%v", found, err))
	}
	fmt.Printf("Document: %s\n", doc)

	// 6. Store stats
	fmt.Println("\n[6] Store stats...")
	code, body = doRequest(http.MethodGet, BaseURL+"/stats", nil)
	var stats APIResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		panic(err)
	}
	fmt.Printf("Status: %d Stats: %s\n", code, stats.Data)
	expect(stats.Success, "stats request failed: "+stats.Error)

	fmt.Println("\n=== API Test Passed ===")
}

func doRequest(method, url string, body []byte) (int, []byte) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func expect(ok bool, msg string) {
	if !ok {
		panic(msg)
	}
}
