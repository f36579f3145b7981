package service

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"civicconnect/internal/audit"
)

type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Type     string    `json:"type"`
	Modified time.Time `json:"modified"`
	URL      *string   `json:"url"`
}

// GetFileInfo describes a file directly under the upload directory.
func (s *Service) GetFileInfo(ctx context.Context, name string) (FileInfo, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return FileInfo{}, badRequest("Invalid filename")
	}
	st, err := os.Stat(filepath.Join(s.cfg.UploadDir, name))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && st.IsDir()) {
		return FileInfo{}, notFound("File not found")
	}
	if err != nil {
		return FileInfo{}, err
	}
	typ := mime.TypeByExtension(filepath.Ext(name))
	if typ == "" {
		typ = "application/octet-stream"
	}
	return FileInfo{Name: name, Size: st.Size(), Type: typ, Modified: st.ModTime().UTC(), URL: s.fileURL(name)}, nil
}

type DeleteFileInput struct {
	FilePath string `json:"filepath"`
	IssueID  int64  `json:"issue_id"`
}

// DeleteFile removes an uploaded file. Citizens must name the issue the
// file belongs to and own it; staff and admins may remove any file.
func (s *Service) DeleteFile(ctx context.Context, c Caller, in DeleteFileInput) error {
	p := strings.TrimSpace(in.FilePath)
	if p == "" {
		return badRequest("File path is required")
	}
	if strings.Contains(p, "..") || strings.Contains(p, "//") || strings.Contains(p, `\`) {
		return badRequest("Invalid file path")
	}
	switch {
	case in.IssueID != 0:
		it, err := s.loadIssue(ctx, in.IssueID)
		if err != nil {
			return err
		}
		if c.IsStaff() {
			break
		}
		if !OwnsResource(c.UserID, it.UserID) || it.ImagePath == "" || uploadPath(it.ImagePath) != uploadPath(p) {
			return forbidden("Unauthorized: Cannot delete other user's files")
		}
	case !c.IsStaff():
		return forbidden("Unauthorized: Cannot delete other user's files")
	}

	full := filepath.Join(s.cfg.UploadDir, uploadPath(p))
	st, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && st.IsDir()) {
		return notFound("File not found")
	}
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return err
	}
	s.record(ctx, c, audit.FileDeleted, "files", in.IssueID, map[string]string{"filepath": p}, nil)
	return nil
}

// uploadPath maps a stored or client-supplied path to a clean path relative
// to the upload directory.
func uploadPath(p string) string {
	p = strings.TrimPrefix(strings.TrimLeft(strings.TrimSpace(p), "/"), "uploads/")
	return filepath.Clean("/" + p)
}

func (s *Service) UploadFile(ctx context.Context, c Caller, kind string) error {
	return notImplemented("File uploads are not supported")
}
