package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/UXDProtocol/anchor-comp/pkg/idl"
	"github.com/gagliardetto/solana-go"
)

var customErrorRe = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// ProgramError is an error raised by the program.
type ProgramError struct {
	Program solana.PublicKey
	Code    uint32
	// Name and Msg are empty for codes unknown to the IDL.
	Name string
	Msg  string

	err error
}

// Error implements the error interface.
func (e *ProgramError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("program %s error %d (0x%x): %v", e.Program, e.Code, e.Code, e.err)
	}
	return fmt.Sprintf("program %s error %d %s: %s", e.Program, e.Code, e.Name, e.Msg)
}

// Unwrap returns the error returned by the node.
func (e *ProgramError) Unwrap() error {
	return e.err
}

// translate turns node errors into ProgramError where possible, txErr is an
// on-chain transaction error if any.
func (p *Program) translate(err error, txErr any) error {
	code, ok := customCode(txErr)
	if !ok {
		m := customErrorRe.FindStringSubmatch(err.Error())
		if m == nil {
			return err
		}
		c, perr := strconv.ParseUint(m[1], 16, 32)
		if perr != nil {
			return err
		}
		code = uint32(c)
	}
	pe := &ProgramError{Program: p.entry.ID, Code: code, err: err}
	if ec, ok := p.entry.IDL.Error(code); ok {
		pe.Name, pe.Msg = ec.Name, ec.Msg
	}
	return pe
}

// customCode extracts the code from {"InstructionError": [idx, {"Custom": code}]}.
func customCode(txErr any) (uint32, bool) {
	m, ok := txErr.(map[string]any)
	if !ok {
		return 0, false
	}
	ie, ok := m["InstructionError"].([]any)
	if !ok || len(ie) != 2 {
		return 0, false
	}
	c, ok := ie[1].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := c["Custom"].(type) {
	case float64:
		return uint32(v), v >= 0
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 32)
		return uint32(n), err == nil
	case int:
		return uint32(v), v >= 0
	case uint32:
		return v, true
	}
	return 0, false
}

// ErrorCode returns IDL definition of the error, ok is false if err is not a
// ProgramError or its code is unknown.
func ErrorCode(err error) (idl.ErrorCode, bool) {
	var pe *ProgramError
	if !errors.As(err, &pe) || pe.Name == "" {
		return idl.ErrorCode{}, false
	}
	return idl.ErrorCode{Code: pe.Code, Name: pe.Name, Msg: pe.Msg}, true
}
