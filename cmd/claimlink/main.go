package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkforge/claimlink/pkg/config"
	"github.com/linkforge/claimlink/pkg/gateway"
	"github.com/linkforge/claimlink/pkg/linkcodec"
	"github.com/linkforge/claimlink/pkg/protocol"
	"github.com/linkforge/claimlink/pkg/receipt"
)

var (
	configPath string
	logger     *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "claimlink",
	Short: "Password-gated claim links for escrowed assets",
	Long: `Create and redeem claim links: deposit assets into the escrow
contract and share a link whose secret is the only capability needed to
claim them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},
}

var (
	createChain   string
	createVersion string
	createType    uint8
	createToken   string
	createAmount  string
	createTokenID string
	createSecret  string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Deposit assets into escrow and print the claim link",
	RunE:  runCreate,
}

var (
	claimLink      string
	claimRecipient string
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Redeem a claim link to a recipient address",
	RunE:  runClaim,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <link>",
	Short: "Print the parameters a claim link carries",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("claimlink v1.0.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")

	createCmd.Flags().StringVar(&createChain, "chain", "", "Chain identifier to deposit on")
	createCmd.Flags().StringVar(&createVersion, "protocol-version", "", "Contract version (default from config)")
	createCmd.Flags().Uint8Var(&createType, "type", gateway.LinkTypeNative, "Link type: 0 native, 1 ERC-20, 2 ERC-721, 3 ERC-1155")
	createCmd.Flags().StringVar(&createToken, "token", "", "Token contract address (link types 1-3)")
	createCmd.Flags().StringVar(&createAmount, "amount", "", "Amount in the asset's smallest unit (wei for native)")
	createCmd.Flags().StringVar(&createTokenID, "token-id", "0", "Token ID (link types 2-3)")
	createCmd.Flags().StringVar(&createSecret, "secret", "", "Link password (generated when empty)")

	claimCmd.Flags().StringVar(&claimLink, "link", "", "Claim link to redeem")
	claimCmd.Flags().StringVar(&claimRecipient, "recipient", "", "Address receiving the escrowed assets")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(versionCmd)
}

func initLogger() error {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func newProtocol(cfg *config.Config, chainID, version string) (*protocol.Protocol, error) {
	gw, err := gateway.NewEthGateway(cfg, chainID, version, logger.Named("gateway"))
	if err != nil {
		return nil, err
	}

	parser, err := receipt.NewParser(gw.EscrowAddress())
	if err != nil {
		return nil, err
	}

	return protocol.New(gw, parser, cfg.Protocol.BaseURL, version, logger.Named("protocol")), nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if createChain == "" {
		return fmt.Errorf("--chain is required")
	}
	amount, ok := new(big.Int).SetString(createAmount, 10)
	if !ok {
		return fmt.Errorf("--amount %q is not an integer", createAmount)
	}
	tokenID, ok := new(big.Int).SetString(createTokenID, 10)
	if !ok {
		return fmt.Errorf("--token-id %q is not an integer", createTokenID)
	}

	version := createVersion
	if version == "" {
		version = cfg.Protocol.DefaultVersion
	}

	p, err := newProtocol(cfg, createChain, version)
	if err != nil {
		return err
	}

	result, err := p.CreateLink(context.Background(), protocol.CreateRequest{
		LinkType:     createType,
		TokenAddress: common.HexToAddress(createToken),
		Amount:       amount,
		TokenID:      tokenID,
		Secret:       createSecret,
	})
	if err != nil {
		return err
	}

	logger.Info("link created",
		zap.Int64("deposit_index", result.DepositIndex),
		zap.String("tx_hash", result.Receipt.TxHash.Hex()))

	fmt.Println(result.Link)
	return nil
}

func runClaim(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if claimLink == "" {
		return fmt.Errorf("--link is required")
	}
	if claimRecipient == "" {
		return fmt.Errorf("--recipient is required")
	}

	// The link itself names the chain and contract generation to claim on.
	params, err := linkcodec.Decode(claimLink)
	if err != nil {
		return fmt.Errorf("failed to decode link: %w", err)
	}

	p, err := newProtocol(cfg, params.Chain, params.Version)
	if err != nil {
		return err
	}

	result, err := p.ClaimLink(context.Background(), protocol.ClaimRequest{
		Link:      claimLink,
		Recipient: common.HexToAddress(claimRecipient),
	})
	if err != nil {
		return err
	}

	logger.Info("link claimed",
		zap.Int64("deposit_index", result.DepositIndex),
		zap.String("tx_hash", result.Receipt.TxHash.Hex()))

	fmt.Printf("claimed deposit %d in tx %s\n", result.DepositIndex, result.Receipt.TxHash.Hex())
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	params, err := linkcodec.Decode(args[0])
	if err != nil {
		return fmt.Errorf("failed to decode link: %w", err)
	}

	fmt.Printf("chain:         %s\n", params.Chain)
	fmt.Printf("version:       %s\n", params.Version)
	if params.DepositIndex == linkcodec.IndexAbsent {
		fmt.Printf("deposit index: (absent)\n")
	} else {
		fmt.Printf("deposit index: %d\n", params.DepositIndex)
	}
	if params.Secret != "" {
		fmt.Printf("secret:        (present, %d characters)\n", len(params.Secret))
	} else {
		fmt.Printf("secret:        (absent)\n")
	}
	return nil
}
