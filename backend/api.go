package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/abihf/facelog/protocol"
	"github.com/abihf/facelog/users"
)

// ListOwners fetches every OWNER account.
func (c *Client) ListOwners(ctx context.Context) (*Response[[]protocol.Owner], error) {
	req, err := c.newRequest(ctx, http.MethodGet, protocol.PathOwners, nil)
	if err != nil {
		return nil, err
	}
	return do(c, req, func(r io.Reader) (*[]protocol.Owner, error) {
		owners, err := protocol.ReadOwners(r)
		return &owners, err
	})
}

// CheckUserImages reports whether username already has training images:
// 200 with the images, 403 when none are registered yet.
func (c *Client) CheckUserImages(ctx context.Context, username string) (*Response[protocol.ImagesResponse], error) {
	query := url.Values{protocol.FieldUsername: {username}}
	req, err := c.newRequest(ctx, http.MethodGet, protocol.PathImageExists+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return do(c, req, protocol.ReadImages)
}

// UploadImages posts the images, in order, as training data for username.
func (c *Client) UploadImages(ctx context.Context, username string, paths []string) (*Response[protocol.UploadResponse], error) {
	if len(paths) == 0 {
		return nil, errors.New("no images to upload")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField(protocol.FieldUsername, username); err != nil {
		return nil, errors.Wrap(err, "could not write username field")
	}
	for _, path := range paths {
		if err := addImage(writer, protocol.FieldImageList, path); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "could not close writer")
	}

	req, err := c.newUpload(ctx, protocol.PathUploadTraining, &body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	c.log.Info("Uploading training images", "username", username, "count", len(paths), "bytes", body.Len())
	return do(c, req, protocol.ReadUpload)
}

// SubmitFaceLog posts one verified image for authorization.
func (c *Client) SubmitFaceLog(ctx context.Context, path string) (*Response[protocol.FaceLogResponse], error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := addImage(writer, protocol.FieldImage, path); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "could not close writer")
	}

	req, err := c.newUpload(ctx, protocol.PathFaceLog, &body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return do(c, req, protocol.ReadFaceLog)
}

// RegisterUser validates reg locally and creates the account.
func (c *Client) RegisterUser(ctx context.Context, reg users.Registration) (*Response[protocol.UserDetail], error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal registration")
	}
	req, err := c.newRequest(ctx, http.MethodPost, protocol.PathRegister, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(c, req, protocol.ReadUserDetail, http.StatusOK, http.StatusCreated)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// addImage copies the file at path into a JPEG part. The file is closed
// before returning.
func addImage(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "could not open %s", path)
	}
	defer file.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filepath.Base(path))))
	header.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(header)
	if err != nil {
		return errors.Wrap(err, "could not create form file")
	}
	if _, err := io.Copy(part, file); err != nil {
		return errors.Wrapf(err, "could not copy %s", path)
	}
	return nil
}
