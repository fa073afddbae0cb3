package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/landsale/backend/internal/voucher"
	"github.com/spf13/cobra"
)

const keyEnv = "VOUCHER_SIGNER_KEY"

type globalFlags struct {
	chainID  int64
	contract string
	key      string
}

type output struct {
	Digest    string `json:"digest"`
	Signature string `json:"signature,omitempty"`
	Signer    string `json:"signer,omitempty"`
	SignedAt  int64  `json:"signed_at,omitempty"`
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "voucherctl",
		Short: "Sign and verify EIP-712 land vouchers",
		Long: `Sign and verify EIP-712 land vouchers.

The signer key is read from --key or the ` + keyEnv + ` environment variable.

Examples:
  voucherctl sign land --contract 0xSale --wallet 0xBuyer --token-id 5 --metadata-id 1
  voucherctl recover --digest 0x... --signature 0x...
  voucherctl address`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().Int64Var(&g.chainID, "chain-id", 31337, "EIP-712 domain chain id")
	cmd.PersistentFlags().StringVar(&g.contract, "contract", "", "verifying contract (sale, marketplace or auction address)")
	cmd.PersistentFlags().StringVar(&g.key, "key", "", "hex private key of the signer")

	cmd.AddCommand(newSignCmd(g))
	cmd.AddCommand(newDigestCmd(g))
	cmd.AddCommand(newRecoverCmd())
	cmd.AddCommand(newAddressCmd(g))
	return cmd
}

func newSignCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a voucher",
	}
	cmd.AddCommand(newLandCmd(g, true))
	cmd.AddCommand(newMarketplaceCmd(g))
	cmd.AddCommand(newAuctionCmd(g))
	return cmd
}

func newDigestCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print a voucher digest without signing",
	}
	cmd.AddCommand(newLandCmd(g, false))
	return cmd
}

type landFlags struct {
	wallet      string
	tokenID     string
	metadataID  uint64
	agent       string
	installment bool
	signedAt    int64
}

func newLandCmd(g *globalFlags, sign bool) *cobra.Command {
	f := &landFlags{}
	cmd := &cobra.Command{
		Use:   "land",
		Short: "Primary sale voucher (LandSale)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sale, err := addressFlag("contract", g.contract)
			if err != nil {
				return err
			}
			wallet, err := addressFlag("wallet", f.wallet)
			if err != nil {
				return err
			}
			var agent common.Address
			if f.agent != "" {
				if agent, err = addressFlag("agent", f.agent); err != nil {
					return err
				}
			}
			tokenID, err := uintFlag("token-id", f.tokenID)
			if err != nil {
				return err
			}
			signedAt := f.signedAt
			if signedAt == 0 {
				signedAt = time.Now().Unix()
			}

			digest, err := voucher.LandSale{
				Wallet:            wallet,
				TokenID:           tokenID,
				MetadataID:        new(big.Int).SetUint64(f.metadataID),
				Agent:             agent,
				UpdateInstallment: f.installment,
				SignatureTime:     big.NewInt(signedAt),
			}.Digest(big.NewInt(g.chainID), sale)
			if err != nil {
				return err
			}
			return emit(cmd, g, digest, signedAt, sign)
		},
	}
	cmd.Flags().StringVar(&f.wallet, "wallet", "", "buyer address")
	cmd.Flags().StringVar(&f.tokenID, "token-id", "", "asset id to mint")
	cmd.Flags().Uint64Var(&f.metadataID, "metadata-id", 0, "listing id")
	cmd.Flags().StringVar(&f.agent, "agent", "", "agent address (optional)")
	cmd.Flags().BoolVar(&f.installment, "installment", false, "buyer takes an installment plan")
	cmd.Flags().Int64Var(&f.signedAt, "signed-at", 0, "unix signing time (default now)")
	return cmd
}

type resaleFlags struct {
	landID   string
	land     string
	price    string
	bidder   string
	message  string
	signedAt int64
}

func (f *resaleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.landID, "land-id", "", "token id")
	cmd.Flags().StringVar(&f.land, "land-address", "", "collection address")
	cmd.Flags().StringVar(&f.price, "price", "", "price in wei")
	cmd.Flags().StringVar(&f.message, "message", "", "free-form message")
	cmd.Flags().Int64Var(&f.signedAt, "timestamp", 0, "unix signing time (default now)")
}

func (f *resaleFlags) parse() (landID, price *big.Int, land common.Address, ts int64, err error) {
	if landID, err = uintFlag("land-id", f.landID); err != nil {
		return
	}
	if price, err = uintFlag("price", f.price); err != nil {
		return
	}
	if land, err = addressFlag("land-address", f.land); err != nil {
		return
	}
	ts = f.signedAt
	if ts == 0 {
		ts = time.Now().Unix()
	}
	return
}

func newMarketplaceCmd(g *globalFlags) *cobra.Command {
	f := &resaleFlags{}
	cmd := &cobra.Command{
		Use:   "marketplace",
		Short: "Resale listing voucher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contract, err := addressFlag("contract", g.contract)
			if err != nil {
				return err
			}
			landID, price, land, ts, err := f.parse()
			if err != nil {
				return err
			}
			digest, err := voucher.MarketplaceListing{
				LandID:      landID,
				LandAddress: land,
				Price:       price,
				TimeStamp:   big.NewInt(ts),
				Message:     f.message,
			}.Digest(big.NewInt(g.chainID), contract)
			if err != nil {
				return err
			}
			return emit(cmd, g, digest, ts, true)
		},
	}
	f.bind(cmd)
	return cmd
}

func newAuctionCmd(g *globalFlags) *cobra.Command {
	f := &resaleFlags{}
	cmd := &cobra.Command{
		Use:   "auction",
		Short: "Auction settlement voucher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contract, err := addressFlag("contract", g.contract)
			if err != nil {
				return err
			}
			landID, price, land, ts, err := f.parse()
			if err != nil {
				return err
			}
			bidder, err := addressFlag("highest-bidder", f.bidder)
			if err != nil {
				return err
			}
			digest, err := voucher.AuctionSettlement{
				LandID:        landID,
				Price:         price,
				TimeStamp:     big.NewInt(ts),
				LandAddress:   land,
				HighestBidder: bidder,
				Message:       f.message,
			}.Digest(big.NewInt(g.chainID), contract)
			if err != nil {
				return err
			}
			return emit(cmd, g, digest, ts, true)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&f.bidder, "highest-bidder", "", "winning bidder address")
	return cmd
}

func newRecoverCmd() *cobra.Command {
	var digestHex, sigHex string
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Recover the signer of a digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := hexutil.Decode(digestHex)
			if err != nil || len(raw) != common.HashLength {
				return fmt.Errorf("--digest must be 32 bytes of 0x-hex")
			}
			sig, err := hexutil.Decode(sigHex)
			if err != nil {
				return fmt.Errorf("--signature: %w", err)
			}
			digest := common.BytesToHash(raw)
			signer, err := voucher.RecoverSigner(digest, sig)
			if err != nil {
				return err
			}
			return writeJSON(cmd, output{Digest: digest.Hex(), Signature: sigHex, Signer: signer.Hex()})
		},
	}
	cmd.Flags().StringVar(&digestHex, "digest", "", "EIP-712 digest")
	cmd.Flags().StringVar(&sigHex, "signature", "", "65-byte signature")
	return cmd
}

func newAddressCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address of the signer key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := loadKey(g)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(key.PublicKey).Hex())
			return err
		},
	}
}

func emit(cmd *cobra.Command, g *globalFlags, digest common.Hash, signedAt int64, sign bool) error {
	out := output{Digest: digest.Hex(), SignedAt: signedAt}
	if sign {
		key, err := loadKey(g)
		if err != nil {
			return err
		}
		sig, err := voucher.Sign(digest, key)
		if err != nil {
			return err
		}
		out.Signature = hexutil.Encode(sig)
		out.Signer = crypto.PubkeyToAddress(key.PublicKey).Hex()
	}
	return writeJSON(cmd, out)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadKey(g *globalFlags) (*ecdsa.PrivateKey, error) {
	hexKey := g.key
	if hexKey == "" {
		hexKey = os.Getenv(keyEnv)
	}
	if hexKey == "" {
		return nil, fmt.Errorf("signer key required: --key or %s", keyEnv)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	return key, nil
}

func addressFlag(name, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("--%s must be a 20-byte hex address", name)
	}
	return common.HexToAddress(v), nil
}

func uintFlag(name, v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("--%s must be a non-negative integer", name)
	}
	return n, nil
}
