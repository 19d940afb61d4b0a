package common

import (
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Object Types
// --------------------------------------------------------------------------

// ObjectType is the kind of object a response carries. Its string form is
// sent as Content-Description.
type ObjectType uint8

const (
	ObjUnknown ObjectType = iota
	ObjDAS
	ObjDDS
	ObjData
	ObjDDX
	ObjDataDDX
	ObjError
	ObjWebError
	ObjVersion
)

var objectDescriptions = map[ObjectType]string{
	ObjUnknown:  "unknown_type",
	ObjDAS:      "dods_das",
	ObjDDS:      "dods_dds",
	ObjData:     "dods_data",
	ObjDDX:      "dods_ddx",
	ObjDataDDX:  "dods_data_ddx",
	ObjError:    "dods_error",
	ObjWebError: "web_error",
	ObjVersion:  "dods_version",
}

// request suffixes of the object types that can be requested
var objectSuffixes = map[string]ObjectType{
	"das":     ObjDAS,
	"dds":     ObjDDS,
	"dods":    ObjData,
	"ddx":     ObjDDX,
	"dataddx": ObjDataDDX,
	"ver":     ObjVersion,
}

func (t ObjectType) String() string {
	if d, ok := objectDescriptions[t]; ok {
		return d
	}
	return objectDescriptions[ObjUnknown]
}

// ParseDescription maps a Content-Description value to an object type. Both
// the underscore and the hyphen form are accepted.
func ParseDescription(value string) ObjectType {
	value = strings.ReplaceAll(value, "-", "_")
	for t, d := range objectDescriptions {
		if d == value {
			return t
		}
	}
	return ObjUnknown
}

// SplitSuffix splits a request path like "ocean/coads.dods" into the dataset
// identifier and the requested object type
func SplitSuffix(path string) (dataset string, t ObjectType, ok bool) {
	i := strings.LastIndexByte(path, '.')
	if i <= 0 {
		return "", ObjUnknown, false
	}
	t, ok = objectSuffixes[path[i+1:]]
	if !ok {
		return "", ObjUnknown, false
	}
	return path[:i], t, true
}

// --------------------------------------------------------------------------
// Encodings
// --------------------------------------------------------------------------

// EncodingType is the content encoding of a response body
type EncodingType uint8

const (
	EncUnknown EncodingType = iota
	EncDeflate
	EncPlain
	EncGzip
	EncBinary
)

var encodingNames = map[EncodingType]string{
	EncUnknown: "unknown",
	EncDeflate: "deflate",
	EncPlain:   "x-plain",
	EncGzip:    "gzip",
	EncBinary:  "binary",
}

func (e EncodingType) String() string {
	if n, ok := encodingNames[e]; ok {
		return n
	}
	return encodingNames[EncUnknown]
}

// --------------------------------------------------------------------------
// Request
// --------------------------------------------------------------------------

// Request is one request for a DAP object, independent of the transport it
// arrived on
type Request struct {
	// Object is the requested object type
	Object ObjectType `json:"object"`
	// Dataset is the identifier of the dataset
	Dataset string `json:"dataset"`
	// Constraint is the raw constraint expression
	Constraint string `json:"constraint,omitempty"`
	// IfModifiedSince is the conditional request time, zero if absent
	IfModifiedSince time.Time `json:"ifModifiedSince,omitempty"`
	// AcceptGzip is set if the client accepts a gzip encoded body
	AcceptGzip bool `json:"acceptGzip,omitempty"`
}

// NewRequest creates an unconditional request
func NewRequest(object ObjectType, dataset, constraint string) *Request {
	return &Request{
		Object:     object,
		Dataset:    dataset,
		Constraint: constraint,
	}
}
