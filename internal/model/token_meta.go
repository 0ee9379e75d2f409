package model

import "github.com/gagliardetto/solana-go"

// TokenProgramKind identifies the program that owns a mint.
type TokenProgramKind uint8

const (
	TokenProgramLegacy TokenProgramKind = iota
	TokenProgram2022
)

// ExtensionType is a token-2022 mint extension.
type ExtensionType uint16

const (
	ExtensionTransferFeeConfig ExtensionType = iota + 1
	ExtensionMintCloseAuthority
	ExtensionConfidentialTransfer
	ExtensionDefaultAccountState
	ExtensionNonTransferable
	ExtensionInterestBearing
	ExtensionPermanentDelegate
	ExtensionTransferHook
	ExtensionMetadataPointer
	ExtensionTokenMetadata
)

// TransferFee is one epoch's transfer fee schedule.
type TransferFee struct {
	Epoch       uint64 `json:"epoch"`
	MaximumFee  uint64 `json:"maximum_fee"`
	BasisPoints uint16 `json:"basis_points"`
}

// TransferFeeConfig holds the current and scheduled transfer fee of a mint.
type TransferFeeConfig struct {
	OlderTransferFee TransferFee `json:"older_transfer_fee"`
	NewerTransferFee TransferFee `json:"newer_transfer_fee"`
}

// MintInfo captures what the pool needs to know about a mint.
type MintInfo struct {
	Key         solana.PublicKey   `json:"key"`
	Decimals    uint8              `json:"decimals"`
	Program     TokenProgramKind   `json:"program"`
	Extensions  []ExtensionType    `json:"extensions,omitempty"`
	TransferFee *TransferFeeConfig `json:"transfer_fee,omitempty"`
	FeeExempt   bool               `json:"fee_exempt,omitempty"`
}

// HasExtension reports whether the mint carries ext.
func (m MintInfo) HasExtension(ext ExtensionType) bool {
	for _, e := range m.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
