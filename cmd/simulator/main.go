package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var (
	serverURL    = flag.String("server", "ws://localhost:8080/media-stream", "Media stream WebSocket URL")
	customerName = flag.String("name", "Juan Pérez", "Customer name sent as stream parameter")
	debtAmount   = flag.String("debt", "150000", "Debt amount sent as stream parameter")
	wavFile      = flag.String("wav", "", "WAV file to stream as caller audio (non-interactive mode)")
	markDelay    = flag.Duration("mark-delay", 200*time.Millisecond, "Delay before echoing bot marks")
	interactive  = flag.Bool("interactive", false, "Enable interactive mode")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	simulator := NewSimulator(&SimulatorConfig{
		ServerURL:    *serverURL,
		CustomerName: *customerName,
		DebtAmount:   *debtAmount,
		MarkDelay:    *markDelay,
	}, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down simulator...")
		simulator.Stop()
		os.Exit(0)
	}()

	if err := simulator.Connect(); err != nil {
		logger.Fatal("Failed to connect to server", zap.Error(err))
	}

	if *interactive {
		runInteractiveMode(simulator)
		return
	}

	fmt.Printf("Media stream simulator started\n")
	fmt.Printf("  Server: %s\n", *serverURL)
	fmt.Printf("  Customer: %s (%s)\n", *customerName, *debtAmount)
	fmt.Println("\nPress Ctrl+C to stop")

	if *wavFile != "" {
		if err := simulator.PlayWAV(*wavFile); err != nil {
			logger.Error("Failed to stream wav", zap.Error(err))
		}
	}

	// Silence keeps the stream alive until the bot hangs up.
	for {
		select {
		case <-simulator.Done():
			return
		default:
		}
		if err := simulator.Silence(time.Second); err != nil {
			return
		}
	}
}

func runInteractiveMode(sim *Simulator) {
	fmt.Println("\nMedia Stream Simulator - Interactive Mode")
	fmt.Println("=========================================")
	fmt.Println("Commands:")
	fmt.Println("  play <file.wav>     - Stream a WAV file as caller audio")
	fmt.Println("  silence <seconds>   - Stream silence")
	fmt.Println("  stats               - Show stream counters")
	fmt.Println("  hangup | quit       - Send stop and exit")
	fmt.Println("")

	sim.RunInteractive()
}
