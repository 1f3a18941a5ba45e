// internal/device/tuya/message.go
package tuya

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Frame layout (55AA, protocol 3.1 - 3.4):
//
//	prefix(4) seq(4) cmd(4) length(4) [retcode(4)] payload trailer suffix(4)
//
// length counts everything after the length field.
// trailer is CRC32 (4) up to 3.3 and HMAC-SHA256 (32) from 3.4.
const (
	prefix55AA uint32 = 0x000055AA
	suffix55AA uint32 = 0x0000AA55

	headerLen = 16
	crcLen    = 4
	hmacLen   = 32
	suffixLen = 4

	maxFrameLen = 64 << 10
)

// Command words used by the logger.
const (
	cmdSessKeyNegStart  uint32 = 0x03
	cmdSessKeyNegResp   uint32 = 0x04
	cmdSessKeyNegFinish uint32 = 0x05
	cmdStatus           uint32 = 0x08
	cmdHeartBeat        uint32 = 0x09
	cmdDPQuery          uint32 = 0x0a
	cmdDPQueryNew       uint32 = 0x10
)

var (
	errBadPrefix   = errors.New("tuya: bad frame prefix")
	errBadSuffix   = errors.New("tuya: bad frame suffix")
	errBadChecksum = errors.New("tuya: frame checksum mismatch")
)

// message is one decoded frame.
type message struct {
	seq     uint32
	cmd     uint32
	payload []byte

	// Device-originated frames carry a return code ahead of the payload.
	hasRetcode bool
	retcode    uint32
}

// pack encodes m. A nil hmacKey selects the CRC32 trailer.
func pack(m message, hmacKey []byte) []byte {
	trailer := crcLen
	if hmacKey != nil {
		trailer = hmacLen
	}

	body := m.payload
	if m.hasRetcode {
		body = binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(m.payload)), m.retcode)
		body = append(body, m.payload...)
	}

	length := len(body) + trailer + suffixLen
	buf := make([]byte, 0, headerLen+length)
	buf = binary.BigEndian.AppendUint32(buf, prefix55AA)
	buf = binary.BigEndian.AppendUint32(buf, m.seq)
	buf = binary.BigEndian.AppendUint32(buf, m.cmd)
	buf = binary.BigEndian.AppendUint32(buf, uint32(length))
	buf = append(buf, body...)

	if hmacKey != nil {
		buf = append(buf, sign(hmacKey, buf)...)
	} else {
		buf = binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	}
	return binary.BigEndian.AppendUint32(buf, suffix55AA)
}

// readMessage reads and verifies exactly one frame from r.
func readMessage(r io.Reader, hmacKey []byte) (message, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return message{}, err
	}
	if binary.BigEndian.Uint32(hdr[0:4]) != prefix55AA {
		return message{}, errBadPrefix
	}

	trailer := crcLen
	if hmacKey != nil {
		trailer = hmacLen
	}

	length := int(binary.BigEndian.Uint32(hdr[12:16]))
	if length < trailer+suffixLen || length > maxFrameLen {
		return message{}, fmt.Errorf("tuya: frame length %d out of range", length)
	}

	frame := make([]byte, headerLen+length)
	copy(frame, hdr[:])
	if _, err := io.ReadFull(r, frame[headerLen:]); err != nil {
		return message{}, err
	}

	end := len(frame) - suffixLen - trailer
	if hmacKey != nil {
		if !hmac.Equal(frame[end:end+hmacLen], sign(hmacKey, frame[:end])) {
			return message{}, errBadChecksum
		}
	} else if binary.BigEndian.Uint32(frame[end:end+crcLen]) != crc32.ChecksumIEEE(frame[:end]) {
		return message{}, errBadChecksum
	}
	if binary.BigEndian.Uint32(frame[len(frame)-suffixLen:]) != suffix55AA {
		return message{}, errBadSuffix
	}

	m := message{
		seq:     binary.BigEndian.Uint32(hdr[4:8]),
		cmd:     binary.BigEndian.Uint32(hdr[8:12]),
		payload: frame[headerLen:end],
	}

	// Return codes are small; anything with high bits set is payload.
	if len(m.payload) >= 4 && binary.BigEndian.Uint32(m.payload[:4])&0xFFFFFF00 == 0 {
		m.hasRetcode = true
		m.retcode = binary.BigEndian.Uint32(m.payload[:4])
		m.payload = m.payload[4:]
	}
	return m, nil
}

func sign(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
