package state

import (
	"encoding/binary"
	"encoding/hex"
)

var (
	accountPrefix     = []byte("account/")
	tokenPrefix       = []byte("registry/token/")
	tokenCountKey     = []byte("registry/count")
	listingPrefix     = []byte("market/listing/")
	marketCountersKey = []byte("market/counters")
)

func accountKey(addr []byte) []byte {
	return append(append([]byte(nil), accountPrefix...), []byte(hex.EncodeToString(addr))...)
}

func tokenKey(id uint64) []byte {
	return appendUint64(append([]byte(nil), tokenPrefix...), id)
}

func listingKey(id uint64) []byte {
	return appendUint64(append([]byte(nil), listingPrefix...), id)
}

func appendUint64(prefix []byte, id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return append(prefix, buf[:]...)
}
