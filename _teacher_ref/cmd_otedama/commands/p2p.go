package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// p2pCmd represents the p2p command
var p2pCmd = &cobra.Command{
	Use:   "p2p",
	Short: "P2P pool management",
	Long:  `Manage P2P mining pools - join existing pools or create new ones.`,
}

// p2pJoinCmd represents the p2p join command
var p2pJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join existing P2P pool",
	Long: `Join an existing P2P mining pool.

Example:
  otedama p2p join --bootstrap 192.168.1.100:3333,192.168.1.101:3333`,
	RunE: runP2PJoin,
}

// p2pCreateCmd represents the p2p create command
var p2pCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create new P2P pool",
	Long: `Create a new P2P mining pool.

Example:
  otedama p2p create --name "MyPool" --fee 1.0 --min-payout 0.1`,
	RunE: runP2PCreate,
}

func init() {
	rootCmd.AddCommand(p2pCmd)
	p2pCmd.AddCommand(p2pJoinCmd)
	p2pCmd.AddCommand(p2pCreateCmd)
	
	// Join command flags
	p2pJoinCmd.Flags().String("bootstrap", "", "Bootstrap nodes (comma-separated)")
	p2pJoinCmd.Flags().String("wallet", "", "Your wallet address")
	p2pJoinCmd.Flags().String("worker", "worker1", "Worker name")
	p2pJoinCmd.Flags().Int("port", 3333, "Local P2P port")
	p2pJoinCmd.MarkFlagRequired("bootstrap")
	
	// Create command flags
	p2pCreateCmd.Flags().String("name", "", "Pool name (required)")
	p2pCreateCmd.Flags().Float64("fee", 1.0, "Pool fee percentage")
	p2pCreateCmd.Flags().Float64("min-payout", 0.1, "Minimum payout threshold")
	p2pCreateCmd.Flags().String("algorithm", "ethash", "Mining algorithm")
	p2pCreateCmd.Flags().Int("port", 3333, "P2P listening port")
	p2pCreateCmd.Flags().String("announce", "", "Public announce address")
	p2pCreateCmd.MarkFlagRequired("name")
}

func runP2PJoin(cmd *cobra.Command, args []string) error {
	bootstrap, _ := cmd.Flags().GetString("bootstrap")
	wallet, _ := cmd.Flags().GetString("wallet")
	worker, _ := cmd.Flags().GetString("worker")
	port, _ := cmd.Flags().GetInt("port")
	
	bootstrapNodes := strings.Split(bootstrap, ",")
	
	fmt.Printf("Joining P2P pool...\n")
	fmt.Printf("Bootstrap nodes: %v\n", bootstrapNodes)
	fmt.Printf("Wallet: %s\n", wallet)
	fmt.Printf("Worker: %s\n", worker)
	fmt.Printf("Local port: %d\n", port)
	
	// TODO: Implement P2P join logic
	return fmt.Errorf("p2p join not yet implemented")
}

func runP2PCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	fee, _ := cmd.Flags().GetFloat64("fee")
	minPayout, _ := cmd.Flags().GetFloat64("min-payout")
	algorithm, _ := cmd.Flags().GetString("algorithm")
	port, _ := cmd.Flags().GetInt("port")
	announce, _ := cmd.Flags().GetString("announce")
	
	fmt.Printf("Creating P2P pool...\n")
	fmt.Printf("Name: %s\n", name)
	fmt.Printf("Fee: %.1f%%\n", fee)
	fmt.Printf("Min payout: %.4f\n", minPayout)
	fmt.Printf("Algorithm: %s\n", algorithm)
	fmt.Printf("Port: %d\n", port)
	
	if announce != "" {
		fmt.Printf("Announce address: %s\n", announce)
	}
	
	// TODO: Implement P2P create logic
	return fmt.Errorf("p2p create not yet implemented")
}