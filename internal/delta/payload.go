package delta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// payloadFormatVersion guards against decoding a payload written by an
// incompatible future encoding, mirroring objects.EncodeManifest's own
// versioning convention.
const payloadFormatVersion = 1

// EncodePayload serializes d's instructions together with the literal
// bytes its Insert instructions reference, into the single blob stored
// under a delta object's storage key. BaseHash/SourceHash are not
// included: the caller already knows both from the key it stored this
// payload under and from the sidecar record beside it.
func EncodePayload(d *Delta, insertData []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(payloadFormatVersion)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, d.TotalSize); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(d.Instructions))); err != nil {
		return nil, err
	}
	for _, inst := range d.Instructions {
		if err := binary.Write(&buf, binary.LittleEndian, uint8(inst.Type)); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, inst.SourceOffset); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, inst.TargetOffset); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, inst.Length); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(insertData))); err != nil {
		return nil, err
	}
	buf.Write(insertData)
	return buf.Bytes(), nil
}

// DecodePayload parses a payload written by EncodePayload, returning a
// Delta with TotalSize/Instructions populated (BaseHash/SourceHash/
// DeltaSize/SavingsRatio are the caller's to fill in from the sidecar)
// and the Insert instructions' literal bytes.
func DecodePayload(data []byte) (*Delta, []byte, error) {
	r := bytes.NewReader(data)

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, nil, fmt.Errorf("delta: payload: read version: %w", err)
	}
	if version != payloadFormatVersion {
		return nil, nil, fmt.Errorf("delta: payload: unsupported format version %d", version)
	}

	d := &Delta{}
	if err := binary.Read(r, binary.LittleEndian, &d.TotalSize); err != nil {
		return nil, nil, fmt.Errorf("delta: payload: read total size: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, nil, fmt.Errorf("delta: payload: read instruction count: %w", err)
	}
	d.Instructions = make([]Instruction, 0, count)
	for i := uint32(0); i < count; i++ {
		var inst Instruction
		var kind uint8
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, nil, fmt.Errorf("delta: payload: instruction %d type: %w", i, err)
		}
		inst.Type = InstructionType(kind)
		if err := binary.Read(r, binary.LittleEndian, &inst.SourceOffset); err != nil {
			return nil, nil, fmt.Errorf("delta: payload: instruction %d source offset: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &inst.TargetOffset); err != nil {
			return nil, nil, fmt.Errorf("delta: payload: instruction %d target offset: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &inst.Length); err != nil {
			return nil, nil, fmt.Errorf("delta: payload: instruction %d length: %w", i, err)
		}
		d.Instructions = append(d.Instructions, inst)
	}

	var insertLen uint32
	if err := binary.Read(r, binary.LittleEndian, &insertLen); err != nil {
		return nil, nil, fmt.Errorf("delta: payload: read insert data length: %w", err)
	}
	insertData := make([]byte, insertLen)
	if _, err := io.ReadFull(r, insertData); err != nil {
		return nil, nil, fmt.Errorf("delta: payload: read insert data: %w", err)
	}

	return d, insertData, nil
}
