package idl

import "sort"

// ErrorCode is a program error.
type ErrorCode struct {
	Code uint32 `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg,omitempty"`
}

// Anchor framework error codes, program-defined errors start at 6000 (300
// for older Anchor versions).
var frameworkErrors = map[uint32]ErrorCode{
	100:  {100, "InstructionMissing", "8 byte instruction identifier not provided"},
	101:  {101, "InstructionFallbackNotFound", "Fallback functions are not supported"},
	102:  {102, "InstructionDidNotDeserialize", "The program could not deserialize the given instruction"},
	103:  {103, "InstructionDidNotSerialize", "The program could not serialize the given instruction"},
	1000: {1000, "IdlInstructionStub", "The program was compiled without idl instructions"},
	1001: {1001, "IdlInstructionInvalidProgram", "The transaction was given an invalid program for the IDL instruction"},
	2000: {2000, "ConstraintMut", "A mut constraint was violated"},
	2001: {2001, "ConstraintHasOne", "A has_one constraint was violated"},
	2002: {2002, "ConstraintSigner", "A signer constraint was violated"},
	2003: {2003, "ConstraintRaw", "A raw constraint was violated"},
	2004: {2004, "ConstraintOwner", "An owner constraint was violated"},
	2005: {2005, "ConstraintRentExempt", "A rent exemption constraint was violated"},
	2006: {2006, "ConstraintSeeds", "A seeds constraint was violated"},
	2007: {2007, "ConstraintExecutable", "An executable constraint was violated"},
	2008: {2008, "ConstraintState", "A state constraint was violated"},
	2009: {2009, "ConstraintAssociated", "An associated constraint was violated"},
	2010: {2010, "ConstraintAssociatedInit", "An associated init constraint was violated"},
	2011: {2011, "ConstraintClose", "A close constraint was violated"},
	2012: {2012, "ConstraintAddress", "An address constraint was violated"},
	2013: {2013, "ConstraintZero", "Expected zero account discriminant"},
	2014: {2014, "ConstraintTokenMint", "A token mint constraint was violated"},
	2015: {2015, "ConstraintTokenOwner", "A token owner constraint was violated"},
	3000: {3000, "AccountDiscriminatorAlreadySet", "The account discriminator was already set on this account"},
	3001: {3001, "AccountDiscriminatorNotFound", "No 8 byte discriminator was found on the account"},
	3002: {3002, "AccountDiscriminatorMismatch", "8 byte discriminator did not match what was expected"},
	3003: {3003, "AccountDidNotDeserialize", "Failed to deserialize the account"},
	3004: {3004, "AccountDidNotSerialize", "Failed to serialize the account"},
	3005: {3005, "AccountNotEnoughKeys", "Not enough account keys given to the instruction"},
	3006: {3006, "AccountNotMutable", "The given account is not mutable"},
	3007: {3007, "AccountOwnedByWrongProgram", "The given account is owned by a different program than expected"},
	3008: {3008, "InvalidProgramId", "Program ID was not as expected"},
	3009: {3009, "InvalidProgramExecutable", "Program account is not executable"},
	3010: {3010, "AccountNotSigner", "The given account did not sign"},
	3011: {3011, "AccountNotSystemOwned", "The given account is not owned by the system program"},
	3012: {3012, "AccountNotInitialized", "The program expected this account to be already initialized"},
	4000: {4000, "StateInvalidAddress", "The given state account does not have the correct address"},
	4100: {4100, "DeclaredProgramIdMismatch", "The declared program id does not match the actual program id"},
	5000: {5000, "Deprecated", "The API being used is deprecated and should no longer be used"},
}

// FrameworkError returns Anchor framework error by code.
func FrameworkError(code uint32) (ErrorCode, bool) {
	e, ok := frameworkErrors[code]
	return e, ok
}

// FrameworkErrors returns all known framework errors sorted by code.
func FrameworkErrors() []ErrorCode {
	res := make([]ErrorCode, 0, len(frameworkErrors))
	for _, e := range frameworkErrors {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res
}

// Error returns program-defined or framework error by code.
func (i *IDL) Error(code uint32) (ErrorCode, bool) {
	for _, e := range i.Errors {
		if e.Code == code {
			return e, true
		}
	}
	return FrameworkError(code)
}
