package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// API paths, relative to the backend base URL. Trailing slashes are required.
const (
	PathOwners         = "users/userowner/"
	PathRegister       = "users/register/"
	PathImageExists    = "face/getuserimageexists/"
	PathUploadTraining = "face/createimagetrainingusernew/"
	PathFaceLog        = "face/createlogusersmartnew/"
)

// Multipart field names.
const (
	FieldUsername  = "username"
	FieldImageList = "image_list"
	FieldImage     = "image"
)

const StatusAuthorized = "authorized"

type Owner struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserDetail is the account record returned after registration.
type UserDetail struct {
	ID       Value  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type ImagesResponse struct {
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

type UploadResponse struct {
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

type FaceLogEntry struct {
	Status     string `json:"status"`
	LogID      Value  `json:"log_id"`
	IDFaceUser Value  `json:"id_face_user"`
	AccessTime Value  `json:"access_time"`
}

type FaceLogResponse struct {
	Result     []FaceLogEntry `json:"result"`
	Confidence Value          `json:"confidence"`
}

// First returns the first result record, if any.
func (r *FaceLogResponse) First() (FaceLogEntry, bool) {
	if r == nil || len(r.Result) == 0 {
		return FaceLogEntry{}, false
	}
	return r.Result[0], true
}

func (e FaceLogEntry) Authorized() bool {
	return strings.EqualFold(e.Status, StatusAuthorized)
}

// Value is a JSON scalar of unknown type (number or string).
type Value json.RawMessage

func (v *Value) UnmarshalJSON(data []byte) error {
	*v = append((*v)[:0], data...)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

// String renders strings unquoted, other scalars verbatim, and "N/A" when absent.
func (v Value) String() string {
	raw := bytes.TrimSpace(v)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "N/A"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func ReadOwners(r io.Reader) ([]Owner, error) {
	var owners []Owner
	err := json.NewDecoder(r).Decode(&owners)
	return owners, err
}

func ReadUserDetail(r io.Reader) (*UserDetail, error) {
	var res UserDetail
	err := json.NewDecoder(r).Decode(&res)
	return &res, err
}

func ReadImages(r io.Reader) (*ImagesResponse, error) {
	var res ImagesResponse
	err := json.NewDecoder(r).Decode(&res)
	return &res, err
}

func ReadUpload(r io.Reader) (*UploadResponse, error) {
	var res UploadResponse
	err := json.NewDecoder(r).Decode(&res)
	return &res, err
}

func ReadFaceLog(r io.Reader) (*FaceLogResponse, error) {
	var res FaceLogResponse
	err := json.NewDecoder(r).Decode(&res)
	return &res, err
}
