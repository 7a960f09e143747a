package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"golang.org/x/term"

	"github.com/1broseidon/sizekeep/internal/config"
	"github.com/1broseidon/sizekeep/internal/ipc"
	"github.com/1broseidon/sizekeep/internal/store"
	"github.com/1broseidon/sizekeep/internal/winid"
)

func printRecordsUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sizekeep records list [--json]")
	fmt.Fprintln(w, "  sizekeep records show <id>")
	fmt.Fprintln(w, "  sizekeep records forget <id>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'sizekeep records <command> --help' for command-specific options.")
}

func runRecords(args []string) int {
	if len(args) == 0 {
		printRecordsUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printRecordsUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "list":
		return runRecordsList(args[1:])
	case "show":
		return runRecordsShow(args[1:])
	case "forget":
		return runRecordsForget(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown records command: %s\n\n", args[0])
		printRecordsUsage(os.Stderr)
		return 2
	}
}

// loadRecords fetches records from the daemon, falling back to a direct
// state file read when no daemon runs.
func loadRecords() ([]ipc.RecordInfo, error) {
	client := ipc.NewClient()
	if data, err := client.ListRecords(); err == nil {
		return data.Records, nil
	}

	statePath, err := resolveStatePath()
	if err != nil {
		return nil, err
	}
	records, err := store.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]ipc.RecordInfo, 0, len(records))
	for id, rec := range records {
		out = append(out, ipc.RecordInfo{
			ID:          string(id),
			Width:       rec.Width,
			Height:      rec.Height,
			LastUpdated: rec.LastUpdated,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func resolveStatePath() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.ResolveStatePath()
}

func runRecordsList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sizekeep records list [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List saved window sizes (via the daemon, or the state file when no")
		fmt.Fprintln(os.Stderr, "daemon is running).")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	jsonOut := fs.Bool("json", false, "Output records as JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "records list takes no arguments")
		fs.Usage()
		return 2
	}

	records, err := loadRecords()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if len(records) == 0 {
		fmt.Println("no saved window sizes")
		return 0
	}

	idWidth := len("IDENTITY")
	for _, rec := range records {
		if len(rec.ID) > idWidth {
			idWidth = len(rec.ID)
		}
	}
	// Keep the identity column from eating a narrow terminal.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if max := cols - 40; max > len("IDENTITY") && idWidth > max {
				idWidth = max
			}
		}
	}

	fmt.Printf("%-*s  %6s  %6s  %s\n", idWidth, "IDENTITY", "WIDTH", "HEIGHT", "LAST UPDATED")
	for _, rec := range records {
		id := rec.ID
		if len(id) > idWidth {
			id = id[:idWidth-1] + "…"
		}
		fmt.Printf("%-*s  %6d  %6d  %s\n", idWidth, id, rec.Width, rec.Height, formatTimestamp(rec.LastUpdated))
	}
	return 0
}

func runRecordsShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sizekeep records show <id>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "records show requires <id>")
		fs.Usage()
		return 2
	}
	id := winid.Normalize(fs.Arg(0))

	client := ipc.NewClient()
	if rec, err := client.GetRecord(string(id)); err == nil {
		printRecord(*rec)
		return 0
	} else if client.Ping() == nil {
		// Daemon answered; the record really is absent.
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	statePath, err := resolveStatePath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	records, err := store.ReadFile(statePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rec, ok := records[id]
	if !ok {
		fmt.Fprintf(os.Stderr, "no record for %q\n", id)
		return 1
	}
	printRecord(ipc.RecordInfo{
		ID:          string(id),
		Width:       rec.Width,
		Height:      rec.Height,
		LastUpdated: rec.LastUpdated,
	})
	return 0
}

func printRecord(rec ipc.RecordInfo) {
	fmt.Printf("id:           %s\n", rec.ID)
	fmt.Printf("width:        %d\n", rec.Width)
	fmt.Printf("height:       %d\n", rec.Height)
	fmt.Printf("last_updated: %s\n", formatTimestamp(rec.LastUpdated))
}

func runRecordsForget(args []string) int {
	fs := flag.NewFlagSet("forget", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sizekeep records forget <id>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Delete the saved size for an identity. Uses the daemon when running,")
		fmt.Fprintln(os.Stderr, "otherwise edits the state file directly.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "records forget requires <id>")
		fs.Usage()
		return 2
	}
	id := winid.Normalize(fs.Arg(0))

	client := ipc.NewClient()
	if existed, err := client.ForgetRecord(string(id)); err == nil {
		if !existed {
			fmt.Printf("no record for %q\n", id)
		} else {
			fmt.Printf("forgot %q\n", id)
		}
		return 0
	}

	statePath, err := resolveStatePath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	existed, err := store.ForgetInFile(statePath, id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !existed {
		fmt.Printf("no record for %q\n", id)
	} else {
		fmt.Printf("forgot %q\n", id)
	}
	return 0
}

func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
