package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/blobstore"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/gin-gonic/gin"
)

// upload stores the multipart field "audio" as <id>.webm. Audio of an
// existing recording can only be replaced by its owner.
func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}
	if h.cfg.MaxUploadBytes > 0 && fh.Size > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Audio file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}
	defer f.Close()

	res, err := h.recordings.Upload(c.Request.Context(), currentUser(c), c.Param("id"), f, fh.Size)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
			return
		}
		if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrUnauthorized) {
			writeError(c, err)
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filePath": res.FilePath,
		"fileName": res.FileName,
		"size":     res.Size,
	})
}

// stream sends a recording's audio.
func (h *Handler) stream(c *gin.Context) {
	obj, err := h.recordings.OpenAudio(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrValidation) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
			return
		}
		writeError(c, err)
		return
	}
	defer obj.Body.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = common.AudioContentType
	}
	c.DataFromReader(http.StatusOK, obj.Size, ct, obj.Body, nil)
}

func (h *Handler) audioURL(c *gin.Context) {
	ttl := h.cfg.PresignTTL
	if ttl <= 0 {
		ttl = blobstore.DefaultPresignTTL
	}

	url, err := h.recordings.AudioURL(c.Request.Context(), c.Param("id"), ttl)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int64(ttl.Seconds())})
}

func (h *Handler) listRecordings(c *gin.Context) {
	recs, err := h.recordings.List(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// createRecording runs the pipeline on the uploaded audio and answers as
// soon as the recording is stored. The transcription finishes later.
func (h *Handler) createRecording(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}
	if h.cfg.MaxUploadBytes > 0 && fh.Size > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Audio file too large"})
		return
	}

	var durationMs int64
	if v := strings.TrimSpace(c.PostForm("duration_ms")); v != "" {
		durationMs, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(c, fmt.Errorf("%w: duration_ms must be an integer", common.ErrValidation))
			return
		}
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	audio, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		writeError(c, err)
		return
	}

	entry, err := h.recordings.Create(c.Request.Context(), currentUser(c), c.PostForm("id"), audio, durationMs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, entry)
}

func (h *Handler) transcription(c *gin.Context) {
	tr, err := h.recordings.Transcription(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tr)
}

func (h *Handler) deleteRecording(c *gin.Context) {
	if err := h.recordings.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) recordingTags(c *gin.Context) {
	tags, err := h.recordings.Tags(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *Handler) tagRecording(c *gin.Context) {
	tag, err := h.recordings.Tag(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *Handler) untagRecording(c *gin.Context) {
	if err := h.recordings.Untag(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) recordingsByTag(c *gin.Context) {
	recs, err := h.recordings.ByTag(c.Request.Context(), currentUser(c), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *Handler) search(c *gin.Context) {
	results, err := h.recordings.Search(c.Request.Context(), currentUser(c), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
