package fee

import "cpswap/internal/model"

var supportedExtensions = map[model.ExtensionType]struct{}{
	model.ExtensionTransferFeeConfig: {},
	model.ExtensionMetadataPointer:   {},
	model.ExtensionTokenMetadata:     {},
}

// IsSupportedMint reports whether a pool may hold the mint. Legacy token mints are always
// supported; token-2022 mints only when every extension is one the pool can account for.
func IsSupportedMint(mint model.MintInfo) bool {
	if mint.Program == model.TokenProgramLegacy {
		return true
	}
	for _, ext := range mint.Extensions {
		if _, ok := supportedExtensions[ext]; !ok {
			return false
		}
	}
	return true
}

// ForwardFee is the fee deducted when amount of mint is transferred at epoch.
func ForwardFee(mint model.MintInfo, epoch, amount uint64) (uint64, error) {
	tf, ok := activeFee(mint, epoch)
	if !ok {
		return 0, nil
	}
	return Fee(tf, amount)
}

// InverseFeeForMint is the fee to add to postFeeAmount so a transfer of mint at epoch nets
// postFeeAmount. A basis point rate of 100% consumes the whole transfer up to the cap, so the
// cap itself is returned.
func InverseFeeForMint(mint model.MintInfo, epoch, postFeeAmount uint64) (uint64, error) {
	tf, ok := activeFee(mint, epoch)
	if !ok {
		return 0, nil
	}
	if tf.BasisPoints == MaxBasisPoints {
		return tf.MaximumFee, nil
	}
	return InverseFee(tf, postFeeAmount)
}

func activeFee(mint model.MintInfo, epoch uint64) (model.TransferFee, bool) {
	if mint.FeeExempt || mint.TransferFee == nil || !mint.HasExtension(model.ExtensionTransferFeeConfig) {
		return model.TransferFee{}, false
	}
	return EpochFee(*mint.TransferFee, epoch), true
}
