// Binary tui is an interactive console for inspecting and editing the engine
// configuration, and for launching a paper run without memorizing flags.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/config"
)

const defaultConfigPath = "config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Engine Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit capital and risk knobs")
		fmt.Println("3) Edit execution settings")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch paper engine")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editExecution(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchEngine(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Capital: %.2f\n", cfg.Risk.Capital)
	fmt.Printf("Max exposure: %.0f%% of capital\n", cfg.Risk.MaxExposurePct*100)
	fmt.Printf("Max daily loss: %.2f%% of capital\n", cfg.Risk.MaxDailyLossPct*100)
	fmt.Printf("Max open positions: %d\n", cfg.Risk.MaxPositions)
	fmt.Printf("Execution mode: %s (slippage %.1f bps)\n", cfg.Execution.Mode, cfg.Execution.SlippageBps)
	var names []string
	for _, p := range cfg.Feed.Providers {
		names = append(names, fmt.Sprintf("%s(%s)", p.Name, p.Kind))
	}
	fmt.Println("Providers:", strings.Join(names, ", "))
	fmt.Println("Symbols:", strings.Join(cfg.Feed.Symbols, ", "))
	fmt.Printf("Strategies: %d registered\n", len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		fmt.Printf("  %s on %s (%s, cooldown %ds, cap %d/day)\n",
			s.Name, s.Symbol, s.Mode, s.CooldownSecs, s.MaxDailySignals)
	}
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Capital / Risk ---")
	cfg.Risk.Capital = promptFloat(reader, "Capital", cfg.Risk.Capital)
	cfg.Risk.MaxExposurePct = promptPercent(reader, "Max exposure (% of capital)", cfg.Risk.MaxExposurePct)
	cfg.Risk.MaxDailyLossPct = promptPercent(reader, "Max daily loss (% of capital)", cfg.Risk.MaxDailyLossPct)
	cfg.Risk.MaxPositions = int(promptFloat(reader, "Max open positions", float64(cfg.Risk.MaxPositions)))
}

func editExecution(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Execution ---")
	fmt.Printf("Mode [%s] (paper/live, blank to keep): ", cfg.Execution.Mode)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		mode := strings.TrimSpace(line)
		if mode == "paper" || mode == "live" {
			cfg.Execution.Mode = mode
		} else {
			fmt.Printf("unknown mode %q, keeping %s\n", mode, cfg.Execution.Mode)
		}
	}
	cfg.Execution.SlippageBps = promptFloat(reader, "Slippage (bps)", cfg.Execution.SlippageBps)
	cfg.Execution.RetryMax = int(promptFloat(reader, "Broker retry max", float64(cfg.Execution.RetryMax)))
}

func launchEngine(reader *bufio.Reader) {
	fmt.Println("Launching paper engine (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/engine", "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the engine and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
