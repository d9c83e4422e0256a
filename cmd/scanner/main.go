// Command scanner is a terminal keyboard-wedge client. Lines typed (or
// wedged by a USB scanner) on stdin run through the capture pipeline
// and are submitted to the inventory backend.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shalset/barcode-backend/internal/capture"
	"github.com/shalset/barcode-backend/internal/client"
	"github.com/shalset/barcode-backend/internal/config"
	"github.com/shalset/barcode-backend/internal/models"
)

func main() {
	var (
		serverURL  = flag.String("server", "http://localhost:8090", "backend base URL")
		username   = flag.String("user", "", "login username")
		password   = flag.String("password", "", "login password (or SCANNER_PASSWORD)")
		deviceTag  = flag.String("device", "terminal-wedge", "device tag attached to scans")
		configPath = flag.String("config", "", "optional YAML config for capture tuning")
	)
	flag.Parse()

	if *username == "" {
		fmt.Println("usage: scanner -user <username> [-password <password>] [-server <url>]")
		os.Exit(2)
	}
	if *password == "" {
		*password = os.Getenv("SCANNER_PASSWORD")
	}
	if *password == "" {
		fmt.Println("no password given; set -password or SCANNER_PASSWORD")
		os.Exit(2)
	}

	captureCfg := config.DefaultConfig().Capture
	if *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		captureCfg = cfg.Capture
	}

	c := client.New(*serverURL)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	user, err := c.Login(ctx, *username, *password)
	cancel()
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.FullName)

	workflow := capture.NewWorkflow(c, func() {
		fmt.Println("-- ready for next scan --")
	})

	pipeline := capture.NewPipeline(capture.Config{
		HistorySize:       captureCfg.HistorySize,
		InactivityTimeout: time.Duration(captureCfg.InactivityTimeoutMs) * time.Millisecond,
		AlignmentDelay:    time.Duration(captureCfg.AlignmentDelayMs) * time.Millisecond,
		RequiredReads:     captureCfg.RequiredReads,
		ValidationWindow:  time.Duration(captureCfg.ValidationWindowMs) * time.Millisecond,
		Cooldown:          time.Duration(captureCfg.CooldownMs) * time.Millisecond,
		DeviceTag:         *deviceTag,
	}, c,
		capture.WithWorkflow(workflow),
		capture.WithScanObserver(func(scan capture.CompletedScan) {
			fmt.Printf("scanned %s (%s)\n", scan.Value, scan.Mode)
		}),
	)

	fmt.Println("Scan barcodes now. Commands: :history, :clear, :stats, :quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ":") {
			if !runCommand(line, pipeline, c) {
				return
			}
			continue
		}

		if pipeline.Mode() == models.ScanModeCamera {
			pipeline.CameraDecode(line)
			continue
		}

		// A full line from stdin is a wedge burst terminated by Enter.
		pipeline.KeyboardInput(line)
		pipeline.KeyboardEnter()
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("stdin error: %v\n", err)
		os.Exit(1)
	}
}

// runCommand handles the colon commands. Returns false on :quit.
func runCommand(line string, pipeline *capture.Pipeline, c *client.Client) bool {
	switch strings.TrimSpace(line) {
	case ":quit", ":q":
		return false
	case ":history":
		history := pipeline.History()
		if len(history) == 0 {
			fmt.Println("no scans yet")
			break
		}
		for i, code := range history {
			fmt.Printf("%2d. %s\n", i+1, code)
		}
	case ":clear":
		pipeline.ClearHistory()
		fmt.Println("history cleared")
	case ":stats":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		stats, err := c.ScanStats(ctx)
		cancel()
		if err != nil {
			fmt.Printf("stats unavailable: %v\n", err)
			break
		}
		fmt.Printf("total %d, today %d\n", stats.TotalScans, stats.TodayScans)
		for _, s := range stats.RecentScans {
			fmt.Printf("  %s  %s (%s)\n", s.ScannedAt.Local().Format("15:04:05"), s.Barcode, s.Mode)
		}
	case ":camera":
		pipeline.SetMode(models.ScanModeCamera)
		fmt.Println("camera mode: paste decoder output lines")
	case ":keyboard":
		pipeline.SetMode(models.ScanModeKeyboard)
		fmt.Println("keyboard mode")
	default:
		fmt.Println("unknown command")
	}
	return true
}
