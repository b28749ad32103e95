// Package pipelinecache persists a device's compiled pipeline state between
// runs.
//
// The payload is opaque device data (gpucore.Device.PipelineCacheData) framed
// by a small header that records the adapter it came from:
//
//	offset  size  field
//	0       4     magic "GPFC"
//	4       4     format version
//	8       4     adapter vendor ID
//	12      4     adapter device ID
//	16      8     FNV-1a of the adapter driver string
//	24      8     payload length
//	32      8     FNV-1a of the payload
//	40      n     payload
//
// All integers are little-endian. A blob written on a different adapter or
// driver is stale and is ignored on load.
package pipelinecache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// Version is the current blob format version.
const Version = 1

const headerSize = 40

var magic = [4]byte{'G', 'P', 'F', 'C'}

// Decode errors. All of them mean the blob should be discarded.
var (
	// ErrBadHeader is returned for blobs too short or with the wrong magic.
	ErrBadHeader = errors.New("pipelinecache: bad header")

	// ErrVersion is returned for blobs written by another format version.
	ErrVersion = errors.New("pipelinecache: unsupported version")

	// ErrAdapterMismatch is returned when the blob belongs to another
	// adapter or driver.
	ErrAdapterMismatch = errors.New("pipelinecache: adapter mismatch")

	// ErrChecksum is returned when the payload is truncated or corrupt.
	ErrChecksum = errors.New("pipelinecache: checksum mismatch")
)

// Encode frames payload with a header for the given adapter.
func Encode(info gputypes.AdapterInfo, payload []byte) []byte {
	out := make([]byte, headerSize+len(payload))
	copy(out[0:4], magic[:])
	binary.LittleEndian.PutUint32(out[4:8], Version)
	binary.LittleEndian.PutUint32(out[8:12], info.VendorID)
	binary.LittleEndian.PutUint32(out[12:16], info.DeviceID)
	binary.LittleEndian.PutUint64(out[16:24], sum([]byte(info.Driver+"\x00"+info.DriverInfo)))
	binary.LittleEndian.PutUint64(out[24:32], uint64(len(payload)))
	binary.LittleEndian.PutUint64(out[32:40], sum(payload))
	copy(out[headerSize:], payload)
	return out
}

// Decode validates blob against the adapter and returns its payload.
func Decode(info gputypes.AdapterInfo, blob []byte) ([]byte, error) {
	if len(blob) < headerSize || [4]byte(blob[0:4]) != magic {
		return nil, ErrBadHeader
	}
	if v := binary.LittleEndian.Uint32(blob[4:8]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	vendor := binary.LittleEndian.Uint32(blob[8:12])
	device := binary.LittleEndian.Uint32(blob[12:16])
	if vendor != info.VendorID || device != info.DeviceID {
		return nil, fmt.Errorf("%w: blob %04x:%04x, adapter %04x:%04x",
			ErrAdapterMismatch, vendor, device, info.VendorID, info.DeviceID)
	}
	if binary.LittleEndian.Uint64(blob[16:24]) != sum([]byte(info.Driver+"\x00"+info.DriverInfo)) {
		return nil, fmt.Errorf("%w: driver changed", ErrAdapterMismatch)
	}
	n := binary.LittleEndian.Uint64(blob[24:32])
	payload := blob[headerSize:]
	if uint64(len(payload)) != n || binary.LittleEndian.Uint64(blob[32:40]) != sum(payload) {
		return nil, ErrChecksum
	}
	return payload, nil
}

func sum(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
