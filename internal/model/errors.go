package model

import "errors"

// Code is the numeric identifier of a pool failure.
type Code uint32

// Error is a terminal pool failure. Flows wrap it with context; callers match with errors.Is.
type Error struct {
	Code Code
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrNotApproved         = &Error{Code: 6000, Name: "NotApproved", Msg: "operation not approved"}
	ErrNotSupportMint      = &Error{Code: 6001, Name: "NotSupportMint", Msg: "mint extension not supported"}
	ErrZeroTradingTokens   = &Error{Code: 6002, Name: "ZeroTradingTokens", Msg: "given pool token amount results in zero trading tokens"}
	ErrExceededSlippage    = &Error{Code: 6003, Name: "ExceededSlippage", Msg: "exceeds desired slippage limit"}
	ErrInitLpAmountTooLess = &Error{Code: 6004, Name: "InitLpAmountTooLess", Msg: "initial lp amount is too less"}
	ErrIncorrectLpMint     = &Error{Code: 6005, Name: "IncorrectLpMint", Msg: "address of the provided lp token mint is incorrect"}
	ErrArithmeticOverflow  = &Error{Code: 6006, Name: "ArithmeticOverflow", Msg: "arithmetic overflow"}
	ErrEmptySupply         = &Error{Code: 6007, Name: "EmptySupply", Msg: "input token account empty"}
	ErrInvalidMintOrder    = &Error{Code: 6008, Name: "InvalidMintOrder", Msg: "token_0 mint must sort before token_1 mint"}
	ErrInvalidInput        = &Error{Code: 6009, Name: "InvalidInput", Msg: "invalid input"}
	ErrInvalidFeeConfig    = &Error{Code: 6010, Name: "InvalidFeeConfig", Msg: "fee rate out of range"}
	ErrInvariantViolated   = &Error{Code: 6011, Name: "InvariantViolated", Msg: "constant product decreased"}
	ErrInvalidVault        = &Error{Code: 6012, Name: "InvalidVault", Msg: "vault does not belong to pool"}
)

// CodeOf returns the code of the first pool Error in err's chain, or 0.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// NameOf returns the name of the first pool Error in err's chain, or "Unknown".
func NameOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Name
	}
	return "Unknown"
}
