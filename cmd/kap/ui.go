package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Hellboy20151011/Der-Kapitalist/internal/game"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// promptPassword reads without echo when stdin is a terminal and falls back
// to a plain line read when it is not (pipes, CI).
func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func renderState(view game.StateView) {
	accent.Println("== Der Kapitalist ==")
	neutral.Printf("Coins: %s\n", view.Coins)

	if len(view.Inventory) > 0 {
		accent.Println("\nInventory")
		names := make([]string, 0, len(view.Inventory))
		for name := range view.Inventory {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			neutral.Printf("  %-14s %s\n", name, view.Inventory[name])
		}
	}

	if len(view.Buildings) > 0 {
		accent.Println("\nBuildings")
		for _, b := range view.Buildings {
			status := "idle"
			if b.IsProducing && b.ReadyAt != nil {
				remaining := time.Until(*b.ReadyAt).Round(time.Second)
				if remaining < 0 {
					status = "ready to collect"
				} else {
					status = fmt.Sprintf("producing, ready in %s", remaining)
				}
			}
			neutral.Printf("  %-14s lvl %-3d %s\n", b.Type, b.Level, status)
		}
	}
}

func renderListings(listings []game.ListingView) {
	if len(listings) == 0 {
		printWarn("No active listings.")
		return
	}
	accent.Printf("%-6s %-14s %12s %14s %6s  %s\n",
		"ID", "RESOURCE", "QTY", "PRICE/UNIT", "FEE%", "EXPIRES")
	for _, l := range listings {
		neutral.Printf("%-6d %-14s %12s %14s %5d%%  %s\n",
			l.ID, l.ResourceType, l.Quantity, l.PricePerUnit,
			l.FeePercent, l.ExpiresAt.Local().Format("Jan 2 15:04"))
	}
}
