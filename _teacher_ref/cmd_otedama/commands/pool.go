package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// poolCmd represents the pool command
var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Connect to traditional mining pools",
	Long: `Connect to traditional mining pools using Stratum protocol.

Example:
  otedama pool --url stratum+tcp://your-pool-address:3333 --wallet YOUR_WALLET --worker worker1`,
	RunE: runPool,
}

func init() {
	rootCmd.AddCommand(poolCmd)
	
	poolCmd.Flags().String("url", "", "Pool URL (required)")
	poolCmd.Flags().String("wallet", "", "Wallet address (required)")
	poolCmd.Flags().String("worker", "worker1", "Worker name")
	poolCmd.Flags().String("password", "x", "Worker password")
	poolCmd.Flags().String("algorithm", "ethash", "Mining algorithm")
	poolCmd.Flags().Bool("ssl", false, "Use SSL/TLS connection")
	poolCmd.Flags().Int("threads", 0, "Number of CPU threads (0=auto)")
	
	poolCmd.MarkFlagRequired("url")
	poolCmd.MarkFlagRequired("wallet")
}

func runPool(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	wallet, _ := cmd.Flags().GetString("wallet")
	worker, _ := cmd.Flags().GetString("worker")
	password, _ := cmd.Flags().GetString("password")
	algorithm, _ := cmd.Flags().GetString("algorithm")
	useSSL, _ := cmd.Flags().GetBool("ssl")
	threads, _ := cmd.Flags().GetInt("threads")
	
	fmt.Printf("Connecting to pool: %s\n", url)
	fmt.Printf("Wallet: %s\n", wallet)
	fmt.Printf("Worker: %s\n", worker)
	fmt.Printf("Algorithm: %s\n", algorithm)
	fmt.Printf("SSL: %v\n", useSSL)
	fmt.Printf("Threads: %d\n", threads)
	
	// TODO: Implement pool mining logic
	return fmt.Errorf("pool mining not yet implemented")
}