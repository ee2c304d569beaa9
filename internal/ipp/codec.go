package ipp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Protocol version sent on the wire. 1.1 is the broadest common ground
// for label printer firmware.
const (
	versionMajor byte = 0x01
	versionMinor byte = 0x01
)

// Operation identifiers.
const (
	opPrintJob             uint16 = 0x0002
	opGetPrinterAttributes uint16 = 0x000B
)

// Attribute group delimiter tags.
const (
	tagOperationAttributes byte = 0x01
	tagJobAttributes       byte = 0x02
	tagEndOfAttributes     byte = 0x03
	tagPrinterAttributes   byte = 0x04
)

// Attribute value tags.
const (
	tagInteger         byte = 0x21
	tagBoolean         byte = 0x22
	tagEnum            byte = 0x23
	tagName            byte = 0x42
	tagKeyword         byte = 0x44
	tagURI             byte = 0x45
	tagCharset         byte = 0x47
	tagNaturalLanguage byte = 0x48
	tagMimeMediaType   byte = 0x49
)

// request accumulates one IPP request body: the fixed header, the
// attribute groups in order, then the optional document data.
type request struct {
	buf bytes.Buffer
}

func newRequest(op uint16, requestID uint32) *request {
	r := &request{}
	r.buf.WriteByte(versionMajor)
	r.buf.WriteByte(versionMinor)
	writeU16(&r.buf, op)
	writeU32(&r.buf, requestID)

	// Operation attributes must open with charset and natural language,
	// in that order.
	r.buf.WriteByte(tagOperationAttributes)
	r.addString(tagCharset, "attributes-charset", "utf-8")
	r.addString(tagNaturalLanguage, "attributes-natural-language", "en")
	return r
}

// addString appends one string-valued attribute to the current group.
func (r *request) addString(tag byte, name, value string) {
	r.buf.WriteByte(tag)
	writeU16(&r.buf, uint16(len(name)))
	r.buf.WriteString(name)
	writeU16(&r.buf, uint16(len(value)))
	r.buf.WriteString(value)
}

// addInt appends one 4-byte integer or enum attribute.
func (r *request) addInt(tag byte, name string, value int32) {
	r.buf.WriteByte(tag)
	writeU16(&r.buf, uint16(len(name)))
	r.buf.WriteString(name)
	writeU16(&r.buf, 4)
	writeU32(&r.buf, uint32(value))
}

// addKeywords appends a multi-valued keyword attribute. Values after the
// first ride on a zero-length name, per the additional-value encoding.
func (r *request) addKeywords(name string, values []string) {
	for i, v := range values {
		r.buf.WriteByte(tagKeyword)
		if i == 0 {
			writeU16(&r.buf, uint16(len(name)))
			r.buf.WriteString(name)
		} else {
			writeU16(&r.buf, 0)
		}
		writeU16(&r.buf, uint16(len(v)))
		r.buf.WriteString(v)
	}
}

// startJobAttributes closes the operation group and opens the job group.
func (r *request) startJobAttributes() {
	r.buf.WriteByte(tagJobAttributes)
}

// finish terminates the attribute section and appends the document data.
func (r *request) finish(doc []byte) []byte {
	r.buf.WriteByte(tagEndOfAttributes)
	if len(doc) > 0 {
		r.buf.Write(doc)
	}
	return r.buf.Bytes()
}

// Value is one attribute value as received, with just enough typing for
// the attributes this client consumes.
type Value struct {
	Tag   byte
	Bytes []byte
}

// String renders text-shaped values verbatim and numbers in decimal.
func (v Value) String() string {
	switch v.Tag {
	case tagInteger, tagEnum:
		return fmt.Sprintf("%d", v.Int())
	case tagBoolean:
		if len(v.Bytes) == 1 && v.Bytes[0] == 0x01 {
			return "true"
		}
		return "false"
	default:
		return string(v.Bytes)
	}
}

// Int decodes 4-byte integer and enum values; anything else is 0.
func (v Value) Int() int {
	if (v.Tag == tagInteger || v.Tag == tagEnum) && len(v.Bytes) == 4 {
		return int(int32(binary.BigEndian.Uint32(v.Bytes)))
	}
	return 0
}

// Response is one parsed IPP response: status plus every attribute the
// device returned, across all groups.
type Response struct {
	StatusCode uint16
	RequestID  uint32
	Attributes map[string][]Value
}

// StatusOK reports whether the status code is in the successful class.
func (r *Response) StatusOK() bool {
	return r.StatusCode <= 0x00FF
}

// StatusMessage returns the device's status-message when present.
func (r *Response) StatusMessage() string {
	if vs, ok := r.Attributes["status-message"]; ok && len(vs) > 0 {
		return vs[0].String()
	}
	return ""
}

// parseResponse decodes a full response body. The attribute section is a
// flat tag/length/value sequence: delimiter tags below 0x10 switch
// groups, a zero-length name continues the previous attribute.
func parseResponse(body []byte) (*Response, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("response too short: %d bytes", len(body))
	}

	resp := &Response{
		StatusCode: binary.BigEndian.Uint16(body[2:4]),
		RequestID:  binary.BigEndian.Uint32(body[4:8]),
		Attributes: map[string][]Value{},
	}

	i := 8
	lastName := ""
	for i < len(body) {
		tag := body[i]
		i++

		if tag == tagEndOfAttributes {
			return resp, nil
		}
		if tag < 0x10 {
			// Group delimiter. Attribute names never continue across
			// groups.
			lastName = ""
			continue
		}

		if i+2 > len(body) {
			return nil, fmt.Errorf("truncated attribute name length at offset %d", i)
		}
		nameLen := int(binary.BigEndian.Uint16(body[i:]))
		i += 2
		if i+nameLen > len(body) {
			return nil, fmt.Errorf("truncated attribute name at offset %d", i)
		}
		name := string(body[i : i+nameLen])
		i += nameLen

		if i+2 > len(body) {
			return nil, fmt.Errorf("truncated attribute value length at offset %d", i)
		}
		valueLen := int(binary.BigEndian.Uint16(body[i:]))
		i += 2
		if i+valueLen > len(body) {
			return nil, fmt.Errorf("truncated attribute value at offset %d", i)
		}
		value := make([]byte, valueLen)
		copy(value, body[i:i+valueLen])
		i += valueLen

		if name == "" {
			name = lastName
		}
		if name == "" {
			// Additional value before any named attribute; nothing to
			// attach it to.
			continue
		}
		lastName = name
		resp.Attributes[name] = append(resp.Attributes[name], Value{Tag: tag, Bytes: value})
	}

	return nil, fmt.Errorf("response missing end-of-attributes tag")
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
