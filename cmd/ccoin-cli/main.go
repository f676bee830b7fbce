// Veilchain CLI - command-line interface for interacting with a veilchain node.
package main

import (
	"fmt"
	"os"
)

const (
	version = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("veilchain-cli v%s\n", version)

	case "help":
		printUsage()

	case "status":
		cmdStatus()

	case "chain":
		if len(os.Args) < 3 {
			fmt.Println("Usage: veilchain-cli chain <subcommand>")
			fmt.Println("Subcommands: tip, block <hash>")
			os.Exit(1)
		}
		cmdChain(os.Args[2:])

	case "miner":
		if len(os.Args) < 3 {
			fmt.Println("Usage: veilchain-cli miner <subcommand>")
			fmt.Println("Subcommands: start, stop, status")
			os.Exit(1)
		}
		cmdMiner(os.Args[2:])

	case "tx":
		if len(os.Args) < 3 {
			fmt.Println("Usage: veilchain-cli tx <subcommand>")
			fmt.Println("Subcommands: send, status <txid>, nullifier <nullifier>")
			os.Exit(1)
		}
		cmdTransaction(os.Args[2:])

	case "epoch":
		if len(os.Args) < 3 {
			fmt.Println("Usage: veilchain-cli epoch <subcommand>")
			fmt.Println("Subcommands: show <number>, verify <number> <proof_hash> <index>")
			os.Exit(1)
		}
		cmdEpoch(os.Args[2:])

	case "wallet":
		if len(os.Args) < 3 {
			fmt.Println("Usage: veilchain-cli wallet <subcommand>")
			fmt.Println("Subcommands: new, balance, address")
			os.Exit(1)
		}
		cmdWallet(os.Args[2:])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("veilchain-cli - command-line interface for a veilchain node")
	fmt.Println()
	fmt.Println("Usage: veilchain-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("  status   Show node status")
	fmt.Println("  chain    Chain operations (tip, block)")
	fmt.Println("  miner    Mining operations (start, stop, status)")
	fmt.Println("  tx       Transaction operations (send, status, nullifier)")
	fmt.Println("  epoch    Epoch accumulator operations (show, verify)")
	fmt.Println("  wallet   Wallet operations (new, balance, address)")
	fmt.Println()
	fmt.Println("Run 'veilchain-cli <command>' with no arguments to list its subcommands.")
}

func cmdStatus() {
	fmt.Println("Connecting to veilchain node...")
	// TODO: dial the node's RPC surface once it exists; until then this
	// prints the shape the response will eventually take.
	fmt.Println("Node Status:")
	fmt.Println("  Version: 0.1.0")
	fmt.Println("  Network: testnet")
	fmt.Println("  Height: 0")
	fmt.Println("  Peers: 0")
	fmt.Println("  Syncing: false")
}

func cmdChain(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "tip":
		fmt.Println("Chain Tip:")
		fmt.Println("  Height: 0")
		fmt.Println("  Hash: (genesis)")

	case "block":
		if len(args) < 2 {
			fmt.Println("Usage: veilchain-cli chain block <hash>")
			return
		}
		fmt.Printf("Block %s not found\n", args[1])

	default:
		fmt.Printf("Unknown chain command: %s\n", args[0])
	}
}

func cmdMiner(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "start":
		fmt.Println("Starting miner...")
		fmt.Println("Miner started.")

	case "stop":
		fmt.Println("Stopping miner...")
		fmt.Println("Miner stopped.")

	case "status":
		fmt.Println("Miner Status:")
		fmt.Println("  Running: false")
		fmt.Println("  Difficulty bits: 0x00000000")
		fmt.Println("  Blocks Mined: 0")

	default:
		fmt.Printf("Unknown miner command: %s\n", args[0])
	}
}

func cmdTransaction(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "send":
		fmt.Println("Transaction sending not yet implemented")
		fmt.Println("Usage: veilchain-cli tx send --to <address> --amount <base_units> [--shielded]")

	case "status":
		if len(args) < 2 {
			fmt.Println("Usage: veilchain-cli tx status <txid>")
			return
		}
		fmt.Printf("Transaction %s not found\n", args[1])

	case "nullifier":
		if len(args) < 2 {
			fmt.Println("Usage: veilchain-cli tx nullifier <nullifier>")
			return
		}
		fmt.Printf("Nullifier %s: unspent\n", args[1])

	default:
		fmt.Printf("Unknown transaction command: %s\n", args[0])
	}
}

func cmdEpoch(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "show":
		if len(args) < 2 {
			fmt.Println("Usage: veilchain-cli epoch show <number>")
			return
		}
		fmt.Printf("Epoch %s not found\n", args[1])

	case "verify":
		if len(args) < 4 {
			fmt.Println("Usage: veilchain-cli epoch verify <number> <proof_hash> <index>")
			return
		}
		fmt.Println("Inclusion proof verification requires a Merkle path; not available from the CLI alone.")

	default:
		fmt.Printf("Unknown epoch command: %s\n", args[0])
	}
}

func cmdWallet(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "new":
		fmt.Println("Creating new wallet...")
		fmt.Println("Wallet created. Save your seed phrase:")
		fmt.Println("  (seed phrase would be displayed here)")

	case "balance":
		fmt.Println("Wallet Balance:")
		fmt.Println("  Shielded: 0")

	case "address":
		fmt.Println("Wallet Addresses:")
		fmt.Println("  Shielded: (none)")

	default:
		fmt.Printf("Unknown wallet command: %s\n", args[0])
	}
}
