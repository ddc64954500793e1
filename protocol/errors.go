package protocol

import (
	"errors"
	"strconv"
)

// Transaction errors. Every one of them ends the current transaction;
// none is retried here.
var (
	ErrTimeout        = errors.New("rscp: timeout waiting for byte")
	ErrOverflow       = errors.New("rscp: data buffer overflow")
	ErrMalformed      = errors.New("rscp: malformed frame")
	ErrNotSupported   = errors.New("rscp: command not supported")
	ErrTxFailed       = errors.New("rscp: transmit failed")
	ErrRequestFailed  = errors.New("rscp: receive slot request failed")
	ErrTaskBufferFull = errors.New("rscp: task buffer full")
	ErrInvalidAnswer  = errors.New("rscp: reply command does not match request")

	ErrFrameTooLarge = errors.New("rscp: frame exceeds transmit buffer")
)

// Code is the one-byte outcome carried in ack/fail replies.
// Negative values mirror the transaction errors, positive values are
// device statuses.
type Code int8

const (
	CodeOK             Code = 0
	CodeTimeout        Code = -1
	CodeOverflow       Code = -2
	CodeMalformed      Code = -3
	CodeNotSupported   Code = -4
	CodeTxFailed       Code = -5
	CodeRequestFailed  Code = -6
	CodeTaskBufferFull Code = -7
	CodeInvalidAnswer  Code = -8

	// CodeFail reports a failed action; lesser than CodeNOK.
	CodeFail Code = 0x01
	// CodeNOK reports an action that was not handled or had bad parameters.
	CodeNOK Code = 0x02
)

// codeErrors pairs each negative code with its sentinel. CodeOf walks it
// in order, so an error wrapping two sentinels maps to the first listed.
var codeErrors = []struct {
	code Code
	err  error
}{
	{CodeTimeout, ErrTimeout},
	{CodeOverflow, ErrOverflow},
	{CodeMalformed, ErrMalformed},
	{CodeNotSupported, ErrNotSupported},
	{CodeTxFailed, ErrTxFailed},
	{CodeRequestFailed, ErrRequestFailed},
	{CodeTaskBufferFull, ErrTaskBufferFull},
	{CodeInvalidAnswer, ErrInvalidAnswer},
}

// Byte returns the wire representation of the code
func (c Code) Byte() byte {
	return byte(c)
}

// CodeFromByte decodes a wire outcome byte
func CodeFromByte(b byte) Code {
	return Code(int8(b))
}

// Err returns the sentinel error matching the code, or nil for CodeOK and
// device statuses.
func (c Code) Err() error {
	for _, ce := range codeErrors {
		if ce.code == c {
			return ce.err
		}
	}
	return nil
}

// CodeOf maps an error back to its outcome code. Unknown errors map to
// CodeFail.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeFail
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeFail:
		return "fail"
	case CodeNOK:
		return "nok"
	}
	if err := c.Err(); err != nil {
		return err.Error()[len("rscp: "):]
	}
	return "code(" + strconv.Itoa(int(c)) + ")"
}
