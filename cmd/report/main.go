// Package main renders an end-of-run terminal summary of account state,
// open positions, and decision counts from a run's storage snapshot,
// a CLI-ergonomics companion to the web dashboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/neuralprobe/d4/internal/storage"
	"github.com/olekukonko/tablewriter"
)

func main() {
	os.Exit(run())
}

func run() int {
	var storagePath string
	flag.StringVar(&storagePath, "storage", "data/engine_state.json", "Path to the engine's JSON storage snapshot")
	flag.Parse()

	store, err := storage.NewJSONStorage(storagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open storage at %s: %v\n", storagePath, err)
		return 1
	}

	printAccountSummary(store)
	printPositionsTable(store)
	printDecisionSummary(store)
	return 0
}

func printAccountSummary(store storage.Interface) {
	positions := store.GetPositions()
	total := store.GetCash()
	for _, p := range positions {
		total += p.MarketValue
	}
	fmt.Printf("Cash: $%.2f   Open positions: %d   Total value: $%.2f\n\n", store.GetCash(), len(positions), total)
}

func printPositionsTable(store storage.Interface) {
	positions := store.GetPositions()
	if len(positions) == 0 {
		fmt.Println("No open positions.")
		return
	}

	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Symbol", "Qty", "Avg Price", "Last Price", "Market Value", "Unrealized P/L", "Stop")

	for _, symbol := range symbols {
		p := positions[symbol]
		pnl := p.MarketValue - p.CostBasis
		table.Append(
			symbol,
			fmt.Sprintf("%.4f", p.Quantity),
			fmt.Sprintf("$%.2f", p.AvgPrice),
			fmt.Sprintf("$%.2f", p.LastPrice),
			fmt.Sprintf("$%.2f", p.MarketValue),
			fmt.Sprintf("$%.2f", pnl),
			fmt.Sprintf("$%.2f", p.EffectiveStop()),
		)
	}
	table.Render()
	fmt.Println()
}

func printDecisionSummary(store storage.Interface) {
	history := store.GetHistory()
	if len(history) == 0 {
		fmt.Println("No decisions recorded.")
		return
	}

	buys, sells := 0, 0
	bySymbol := make(map[string]int)
	for _, d := range history {
		if d.Buy {
			buys++
		}
		if d.Sell {
			sells++
		}
		bySymbol[d.Symbol]++
	}

	fmt.Printf("Decisions recorded: %d (buys: %d, sells: %d)\n\n", len(history), buys, sells)

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Symbol", "Decisions")
	for _, symbol := range symbols {
		table.Append(symbol, fmt.Sprintf("%d", bySymbol[symbol]))
	}
	table.Render()
}
