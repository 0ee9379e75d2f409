package main

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"cpswap/internal/pda"
)

func newDeriveCmd() *cobra.Command {
	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the addresses of a pool",
		RunE:  runDerive,
	}

	deriveCmd.Flags().String("program-id", pda.DefaultProgramID.String(), "program id")
	deriveCmd.Flags().Uint16("config-index", 0, "AMM config index")
	deriveCmd.Flags().String("mint-a", "", "first mint (either order)")
	deriveCmd.Flags().String("mint-b", "", "second mint (either order)")

	return deriveCmd
}

type addressOutput struct {
	Key  string `json:"key"`
	Bump uint8  `json:"bump"`
}

type deriveOutput struct {
	ProgramID   string        `json:"program_id"`
	Token0Mint  string        `json:"token_0_mint"`
	Token1Mint  string        `json:"token_1_mint"`
	AmmConfig   addressOutput `json:"amm_config"`
	Authority   addressOutput `json:"authority"`
	Pool        addressOutput `json:"pool"`
	LpMint      addressOutput `json:"lp_mint"`
	Token0Vault addressOutput `json:"token_0_vault"`
	Token1Vault addressOutput `json:"token_1_vault"`
	Observation addressOutput `json:"observation"`
}

func runDerive(cmd *cobra.Command, _ []string) error {
	programText, _ := cmd.Flags().GetString("program-id")
	index, _ := cmd.Flags().GetUint16("config-index")
	mintAText, _ := cmd.Flags().GetString("mint-a")
	mintBText, _ := cmd.Flags().GetString("mint-b")

	programID, err := solana.PublicKeyFromBase58(programText)
	if err != nil {
		return fmt.Errorf("invalid program id: %w", err)
	}
	mintA, err := solana.PublicKeyFromBase58(mintAText)
	if err != nil {
		return fmt.Errorf("invalid mint-a: %w", err)
	}
	mintB, err := solana.PublicKeyFromBase58(mintBText)
	if err != nil {
		return fmt.Errorf("invalid mint-b: %w", err)
	}

	out, err := derivePool(programID, index, mintA, mintB)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func derivePool(programID solana.PublicKey, index uint16, mintA, mintB solana.PublicKey) (deriveOutput, error) {
	switch c := bytes.Compare(mintA[:], mintB[:]); {
	case c == 0:
		return deriveOutput{}, fmt.Errorf("mints must differ")
	case c > 0:
		mintA, mintB = mintB, mintA
	}

	ammConfig, err := pda.AmmConfig(programID, index)
	if err != nil {
		return deriveOutput{}, err
	}
	addrs, err := pda.ForPool(programID, ammConfig.Key, mintA, mintB)
	if err != nil {
		return deriveOutput{}, err
	}

	return deriveOutput{
		ProgramID:   programID.String(),
		Token0Mint:  mintA.String(),
		Token1Mint:  mintB.String(),
		AmmConfig:   addressOf(ammConfig),
		Authority:   addressOf(addrs.Authority),
		Pool:        addressOf(addrs.Pool),
		LpMint:      addressOf(addrs.LpMint),
		Token0Vault: addressOf(addrs.Token0Vault),
		Token1Vault: addressOf(addrs.Token1Vault),
		Observation: addressOf(addrs.Observation),
	}, nil
}

func addressOf(a pda.Address) addressOutput {
	return addressOutput{Key: a.Key.String(), Bump: a.Bump}
}
