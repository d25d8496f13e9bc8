package bitcoin

import (
	"encoding/hex"

	"github.com/iov-one/custody"
)

const (
	opReturn    = 0x6a
	opPushData1 = 0x4c
	opPushData2 = 0x4d
)

// recipientHint extracts a destination address from an OP_RETURN output
// script. The pushed data is either the raw address or its text form.
func recipientHint(scriptHex string) (custody.Address, bool) {
	script, err := hex.DecodeString(scriptHex)
	if err != nil || len(script) < 2 || script[0] != opReturn {
		return nil, false
	}
	data, ok := pushedData(script[1:])
	if !ok {
		return nil, false
	}
	if len(data) == custody.AddressLength {
		return custody.Address(data), true
	}
	addr, err := custody.ParseAddress(string(data))
	if err != nil {
		return nil, false
	}
	return addr, true
}

// pushedData returns the data of the single push operation the script
// consists of.
func pushedData(script []byte) ([]byte, bool) {
	var n, offset int
	switch op := script[0]; {
	case op >= 1 && op < opPushData1:
		n, offset = int(op), 1
	case op == opPushData1 && len(script) >= 2:
		n, offset = int(script[1]), 2
	case op == opPushData2 && len(script) >= 3:
		n, offset = int(script[1])|int(script[2])<<8, 3
	default:
		return nil, false
	}
	if len(script) != offset+n {
		return nil, false
	}
	return script[offset:], true
}
