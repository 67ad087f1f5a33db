package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abcfe/abcfe-metadata/api/client"
	"github.com/abcfe/abcfe-metadata/metadata"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/tyler-smith/go-bip39"
)

var (
	baseURL     string
	walletCount int
	devices     int
	rounds      int
	concurrency int
	retryDelay  time.Duration
	verbose     bool
)

// Types each wallet writes, so one run touches several addresses per seed
var loadTypes = []prt.EntryType{
	prt.EntryTypeContacts,
	prt.EntryTypeBitcoin,
	prt.EntryTypeWhatsNew,
}

type WalletInfo struct {
	Index    int
	Mnemonic string
	Devices  []*metadata.Service // same seed, separate clients
}

type Stats struct {
	TotalSaves   int64
	SuccessSaves int64
	Conflicts    int64
	FailedSaves  int64
	StartTime    time.Time
	EndTime      time.Time
}

type job struct {
	wallet *WalletInfo
	device int
	round  int
	t      prt.EntryType
}

func main() {
	flag.StringVar(&baseURL, "url", "http://localhost:8600", "Metadata store URL")
	flag.IntVar(&walletCount, "wallets", 10, "Number of random wallets")
	flag.IntVar(&devices, "devices", 2, "Devices sharing each wallet seed")
	flag.IntVar(&rounds, "rounds", 5, "Saves per device and entry type")
	flag.IntVar(&concurrency, "concurrency", 8, "Number of concurrent savers")
	flag.DurationVar(&retryDelay, "retry-delay", 200*time.Millisecond, "Wait before the single write retry")
	flag.BoolVar(&verbose, "verbose", false, "Verbose output")
	flag.Parse()

	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║      ABCFe Metadata Store Load Test          ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Wallets:     %d\n", walletCount)
	fmt.Printf("  Devices:     %d per wallet\n", devices)
	fmt.Printf("  Rounds:      %d per device and type\n", rounds)
	fmt.Printf("  Concurrency: %d\n", concurrency)
	fmt.Printf("  Store URL:   %s\n\n", baseURL)

	// Step 1: random wallets, each opened on several devices
	fmt.Printf("[1/3] Creating %d wallets...\n", walletCount)
	wallets := make([]*WalletInfo, walletCount)
	for i := range wallets {
		w, err := newWallet(i + 1)
		if err != nil {
			panic(fmt.Sprintf("Failed to create wallet %d: %v", i+1, err))
		}
		wallets[i] = w
		if verbose {
			fmt.Printf("  Wallet %d: %s\n", w.Index, w.Mnemonic)
		}
	}
	fmt.Printf("  ✓ Created %d wallets\n", walletCount)

	// Step 2: concurrent saves. Devices of one wallet race on the same
	// addresses, so some saves hit the stale-state retry path.
	fmt.Printf("\n[2/3] Saving from %d devices...\n", walletCount*devices)
	stats := &Stats{StartTime: time.Now()}
	ctx := context.Background()

	jobs := make(chan job, concurrency)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				doc := fmt.Sprintf(`{"wallet":%d,"device":%d,"round":%d}`, j.wallet.Index, j.device, j.round)
				err := j.wallet.Devices[j.device].Save(ctx, j.t, doc)
				atomic.AddInt64(&stats.TotalSaves, 1)

				switch {
				case err == nil:
					atomic.AddInt64(&stats.SuccessSaves, 1)
				case metadata.KindOf(err) == metadata.KindConflict:
					atomic.AddInt64(&stats.Conflicts, 1)
				default:
					atomic.AddInt64(&stats.FailedSaves, 1)
				}
				if verbose && err != nil {
					fmt.Printf("  [Worker %d] ✗ wallet %d device %d %s: %v\n", workerID, j.wallet.Index, j.device, j.t, err)
				}
			}
		}(i)
	}

	for round := 0; round < rounds; round++ {
		for _, w := range wallets {
			for _, t := range loadTypes {
				for d := range w.Devices {
					jobs <- job{wallet: w, device: d, round: round, t: t}
				}
			}
		}
	}
	close(jobs)

	wg.Wait()
	stats.EndTime = time.Now()

	// Step 3: every device must read back a document its wallet wrote
	fmt.Println("\n[3/3] Verifying stored documents...")
	readable := 0
	for _, w := range wallets {
		for _, t := range loadTypes {
			for d, svc := range w.Devices {
				if _, found, err := svc.Load(ctx, t); err != nil || !found {
					fmt.Printf("  ✗ wallet %d device %d %s: found=%v err=%v\n", w.Index, d, t, found, err)
					continue
				}
				readable++
			}
		}
	}
	fmt.Printf("  ✓ %d/%d loads succeeded\n", readable, walletCount*devices*len(loadTypes))

	fmt.Println("\n╔══════════════════════════════════════════════╗")
	fmt.Println("║              Load Test Results               ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	duration := stats.EndTime.Sub(stats.StartTime)

	fmt.Printf("\n  Total Saves:     %d\n", stats.TotalSaves)
	fmt.Printf("  Successful:      %d\n", stats.SuccessSaves)
	fmt.Printf("  Conflicts:       %d\n", stats.Conflicts)
	fmt.Printf("  Failed:          %d\n", stats.FailedSaves)
	fmt.Printf("  Duration:        %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Saves/s:         %.2f\n", float64(stats.SuccessSaves)/duration.Seconds())
	if stats.TotalSaves > 0 {
		fmt.Printf("  Success Rate:    %.1f%%\n", float64(stats.SuccessSaves)/float64(stats.TotalSaves)*100)
	}
	fmt.Println()
}

func newWallet(index int) (*WalletInfo, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	seed := bip39.NewSeed(mnemonic, "")

	w := &WalletInfo{Index: index, Mnemonic: mnemonic}
	for d := 0; d < devices; d++ {
		svc := metadata.NewService(metadata.StaticSeed(seed), client.New(baseURL, 15*time.Second),
			metadata.WithRetryDelay(retryDelay))
		w.Devices = append(w.Devices, svc)
	}
	return w, nil
}
