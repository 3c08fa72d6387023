package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/utils"
)

// GetUploadedImage handles GET /api/v1/uploads/:filename.
// It serves payment evidence kept by the local image service; S3 evidence is reached through presigned URLs instead.
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	status, code, message := checkUploadName(filename)
	if status != 0 {
		uploadError(c, status, code, message)
		return
	}

	path := filepath.Join(utils.UploadDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		uploadError(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Content-Type", utils.ImageContentType(filename))
	c.Header("Cache-Control", "private, max-age=3600")
	c.Header("X-Content-Type-Options", "nosniff")
	c.File(path)
}

// checkUploadName rejects names that could leave the upload directory or are not evidence images
func checkUploadName(filename string) (status int, code, message string) {
	switch {
	case filename == "":
		return http.StatusBadRequest, "INVALID_REQUEST", "Filename is required"
	case strings.Contains(filename, ".."), strings.ContainsAny(filename, `/\`):
		return http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename"
	case !strings.HasPrefix(utils.ImageContentType(filename), "image/"):
		return http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PNG and JPEG files are supported"
	}
	return 0, "", ""
}

func uploadError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
