package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
)

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// updateFeed swaps in data when its content changed and returns the current
// item. Unchanged content keeps its Last-Modified.
func (s *Server) updateFeed(data []byte) *cacheItem {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	if cur := s.feed.Load(); cur != nil && cur.etag == etag {
		return cur
	}

	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: s.Clock.Now().UTC().Format(http.TimeFormat),
	}
	s.feed.Store(item)

	slog.Debug(config.MsgFeedUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
	return item
}

// handleCalendarFeed serves the ICS of the active account with HTTP caching
// support.
func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	tr := s.translator(r)
	gen := &engine.CalendarGenerator{Clock: s.Clock, FormatSummary: tr.Summary}

	data, _, err := gen.Generate(r.Context(), s.State.Snapshot().Birthdays)
	if err != nil {
		fail(w, r, err)
		return
	}
	item := s.updateFeed(data)

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// handleImportVCard imports from a remote address book when the body is a
// JSON source description, or from the vCard text of the body otherwise.
func (s *Server) handleImportVCard(w http.ResponseWriter, r *http.Request) {
	var (
		report engine.ImportReport
		err    error
	)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get(config.HeaderContentType)); mediaType == config.MimeJSON {
		var src engine.RemoteSource
		if err := s.decode(r, &src); err != nil {
			fail(w, r, err)
			return
		}
		report, err = s.Importer.FromURL(r.Context(), src)
	} else {
		report, err = s.Importer.FromReader(r.Context(), http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize))
	}
	if err != nil {
		fail(w, r, badRequest(err.Error()))
		return
	}

	if err := s.State.ImportBirthdays(r.Context(), report.Birthdays); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, report)
}

func (s *Server) handleExportVCard(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := engine.ExportVCards(&buf, s.State.Snapshot().Birthdays); err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set(config.HeaderContentType, config.MimeVCard)
	w.Header().Set(config.HeaderContentDisp, fmt.Sprintf(config.FormatAttachment, config.ExportFileName))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}
