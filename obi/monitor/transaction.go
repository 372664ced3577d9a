package monitor

import (
	"fmt"

	"github.com/sarchlab/obi/obi"
)

// Transaction is one request and its response as seen on the bus. WData and
// RData hold the full beat, least significant byte first.
type Transaction struct {
	Cycle  uint64
	Addr   uint64
	We     bool
	BE     uint64
	WData  []byte
	AID    uint64
	RValid bool
	RData  []byte
	Err    bool
	RID    uint64
}

func (t Transaction) String() string {
	return fmt.Sprintf(
		"ObiTransaction(addr=0x%08x, we=%t, be=0x%x, wdata=%s, aid=%d, "+
			"rvalid=%t, rdata=%s, err=%t, rid=%d)",
		t.Addr, t.We, t.BE, obi.HexString(t.WData), t.AID, t.RValid,
		obi.HexString(t.RData), t.Err, t.RID)
}
