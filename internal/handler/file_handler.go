package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"filedepot/internal/auth"
	"filedepot/internal/domain"
	"filedepot/internal/service"
	"filedepot/internal/service/storage"
)

// maxUploadBytes — транспортный лимит на тело запроса. Дублирует лимит
// хранилища: клиент может заявить меньший размер, чем реально присылает.
const maxUploadBytes = storage.DefaultMaxFileSize + 1<<20

type FileHandler struct {
	fileService *service.FileService
}

// UploadResponse представляет ответ на загрузку файла
type UploadResponse struct {
	Message string                     `json:"message"`
	File    *domain.FileUploadResponse `json:"file"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// UploadFile обрабатывает загрузку файла
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	uploaded, err := h.fileService.UploadFile(r.Context(), header, file, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Message: "File uploaded successfully",
		File: &domain.FileUploadResponse{
			UUID:      uploaded.UUID,
			Name:      uploaded.Name,
			MIMEType:  uploaded.MIMEType,
			SizeBytes: uploaded.SizeBytes,
			OwnerID:   uploaded.OwnerID,
			CreatedAt: uploaded.CreatedAt,
		},
	})
}

// GetMyFiles возвращает список файлов пользователя
func (h *FileHandler) GetMyFiles(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	files, err := h.fileService.GetUserFiles(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// DownloadFile обрабатывает скачивание файла
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fileUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file UUID")
		return
	}

	download, err := h.fileService.DownloadFile(r.Context(), fileUUID, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer download.Content.Close()

	// Подготавливаем имя файла для Content-Disposition
	encodedFileName := url.QueryEscape(download.File.Name)
	asciiName := strings.ReplaceAll(download.File.Name, `"`, `\"`)
	contentDisposition := fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedFileName)

	w.Header().Set("Content-Type", download.File.MIMEType)
	w.Header().Set("Content-Disposition", contentDisposition)
	w.Header().Set("Content-Length", strconv.FormatInt(download.File.SizeBytes, 10))

	if _, err := io.Copy(w, download.Content); err != nil {
		log.Printf("error streaming file %s: %v", fileUUID, err)
	}
}

// DeleteFile обрабатывает удаление файла
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fileUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file UUID")
		return
	}

	if err := h.fileService.DeleteFile(r.Context(), fileUUID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "File deleted"})
}

// writeServiceError преобразует ошибки сервиса в HTTP-статусы.
func (h *FileHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "Invalid file type. Only PDF and images allowed")
	case errors.Is(err, storage.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, service.ErrInvalidFile):
		writeError(w, http.StatusBadRequest, "Invalid file")
	case errors.Is(err, service.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "Unauthorized access to this file")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
