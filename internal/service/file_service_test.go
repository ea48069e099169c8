package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"filedepot/internal/domain"
	"filedepot/internal/repository"
	"filedepot/internal/service/storage"
)

// fakeFileRepo — репозиторий в памяти для тестов сервиса.
type fakeFileRepo struct {
	mu         sync.Mutex
	files      map[uuid.UUID]*domain.File
	failCreate bool
	now        time.Time
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		files: make(map[uuid.UUID]*domain.File),
		now:   time.Now(),
	}
}

func (r *fakeFileRepo) Create(_ context.Context, file *domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate {
		return fmt.Errorf("simulated insert failure")
	}

	// Монотонные created_at, чтобы проверять порядок сортировки
	r.now = r.now.Add(time.Second)
	file.CreatedAt = r.now
	file.UpdatedAt = r.now

	copied := *file
	r.files[file.UUID] = &copied
	return nil
}

func (r *fakeFileRepo) GetByUUID(_ context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[fileUUID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *file
	return &copied, nil
}

func (r *fakeFileRepo) GetByOwner(_ context.Context, ownerID string) ([]domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []domain.File{}
	for _, file := range r.files {
		if file.OwnerID == ownerID {
			result = append(result, *file)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeFileRepo) Delete(_ context.Context, fileUUID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[fileUUID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.files, fileUUID)
	return nil
}

// makeMultipartFile собирает multipart-форму и возвращает файл с заголовком,
// как их видит хендлер после разбора запроса.
func makeMultipartFile(t *testing.T, name, contentType string, data []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("ошибка создания части формы: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("ошибка записи данных формы: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("ошибка закрытия формы: %v", err)
	}

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("ошибка разбора формы: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })

	header := form.File["file"][0]
	file, err := header.Open()
	if err != nil {
		t.Fatalf("ошибка открытия файла формы: %v", err)
	}
	t.Cleanup(func() { file.Close() })

	return file, header
}

func newTestService(t *testing.T) (*FileService, *fakeFileRepo, string) {
	t.Helper()

	dir := t.TempDir()
	diskStorage, err := storage.NewDiskStorage(&storage.Config{Dir: dir})
	if err != nil {
		t.Fatalf("ошибка создания DiskStorage: %v", err)
	}

	repo := newFakeFileRepo()
	return NewFileService(repo, diskStorage), repo, dir
}

func countDirEntries(t *testing.T, dir string) int {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ошибка чтения директории: %v", err)
	}
	return len(entries)
}

// TestUploadFile проверяет успешную загрузку: запись создана, блоб на диске.
func TestUploadFile(t *testing.T) {
	svc, repo, dir := newTestService(t)

	content := []byte("0123456789")
	file, header := makeMultipartFile(t, "a.pdf", "application/pdf", content)

	uploaded, err := svc.UploadFile(context.Background(), header, file, "u1")
	if err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}

	if uploaded.SizeBytes != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), uploaded.SizeBytes)
	}
	if uploaded.OwnerID != "u1" {
		t.Errorf("владелец: ожидался u1, получен %s", uploaded.OwnerID)
	}
	if uploaded.Name != "a.pdf" {
		t.Errorf("имя: ожидалось a.pdf, получено %s", uploaded.Name)
	}
	if uploaded.CreatedAt.IsZero() {
		t.Error("created_at должен быть установлен")
	}

	stored, err := repo.GetByUUID(context.Background(), uploaded.UUID)
	if err != nil {
		t.Fatalf("запись не найдена в репозитории: %v", err)
	}
	if stored.StoragePath == "" {
		t.Error("storage_path не должен быть пустым")
	}

	if countDirEntries(t, dir) != 1 {
		t.Error("в хранилище должен быть ровно один блоб")
	}
}

// TestUploadFile_InvalidType проверяет, что запрещённый тип не создаёт ни блоб, ни запись.
func TestUploadFile_InvalidType(t *testing.T) {
	svc, repo, dir := newTestService(t)

	file, header := makeMultipartFile(t, "note.txt", "text/plain", []byte("hello"))

	_, err := svc.UploadFile(context.Background(), header, file, "u1")
	if !errors.Is(err, storage.ErrInvalidType) {
		t.Fatalf("ожидалась ErrInvalidType, получено %v", err)
	}

	if len(repo.files) != 0 {
		t.Error("запись не должна быть создана")
	}
	if countDirEntries(t, dir) != 0 {
		t.Error("блоб не должен быть записан")
	}
}

// TestUploadFile_CompensatesBlobOnDBError проверяет компенсирующее удаление блоба
// при ошибке создания записи.
func TestUploadFile_CompensatesBlobOnDBError(t *testing.T) {
	svc, repo, dir := newTestService(t)
	repo.failCreate = true

	file, header := makeMultipartFile(t, "a.pdf", "application/pdf", []byte("data"))

	_, err := svc.UploadFile(context.Background(), header, file, "u1")
	if !errors.Is(err, ErrDatabaseError) {
		t.Fatalf("ожидалась ErrDatabaseError, получено %v", err)
	}

	if countDirEntries(t, dir) != 0 {
		t.Error("осиротевший блоб должен быть удалён")
	}
}

// TestDownloadFile проверяет скачивание владельцем байт-в-байт
// и запрет доступа для чужого пользователя.
func TestDownloadFile(t *testing.T) {
	svc, _, _ := newTestService(t)

	content := []byte("%PDF-1.4 important bytes")
	file, header := makeMultipartFile(t, "doc.pdf", "application/pdf", content)

	uploaded, err := svc.UploadFile(context.Background(), header, file, "u1")
	if err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}

	download, err := svc.DownloadFile(context.Background(), uploaded.UUID, "u1")
	if err != nil {
		t.Fatalf("ошибка скачивания: %v", err)
	}
	defer download.Content.Close()

	data, err := io.ReadAll(download.Content)
	if err != nil {
		t.Fatalf("ошибка чтения содержимого: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое не совпадает с загруженным")
	}
	if download.File.Name != "doc.pdf" {
		t.Errorf("имя файла: ожидалось doc.pdf, получено %s", download.File.Name)
	}

	// Чужой пользователь получает отказ в доступе
	if _, err := svc.DownloadFile(context.Background(), uploaded.UUID, "u2"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("ожидалась ErrAccessDenied, получено %v", err)
	}
}

// TestDownloadFile_NotFound проверяет скачивание несуществующего файла.
func TestDownloadFile_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.DownloadFile(context.Background(), uuid.New(), "u1")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("ожидалась ErrFileNotFound, получено %v", err)
	}
}

// TestDownloadFile_BlobMissing проверяет расхождение: запись есть, блоба нет.
func TestDownloadFile_BlobMissing(t *testing.T) {
	svc, repo, _ := newTestService(t)

	orphan := &domain.File{
		UUID:        uuid.New(),
		Name:        "ghost.pdf",
		StoragePath: "missing-blob.pdf",
		MIMEType:    "application/pdf",
		SizeBytes:   10,
		OwnerID:     "u1",
	}
	if err := repo.Create(context.Background(), orphan); err != nil {
		t.Fatalf("ошибка создания записи: %v", err)
	}

	_, err := svc.DownloadFile(context.Background(), orphan.UUID, "u1")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("ожидалась ErrFileNotFound, получено %v", err)
	}
}

// TestDeleteFile проверяет удаление: блоб и запись исчезают,
// повторное удаление возвращает ErrFileNotFound.
func TestDeleteFile(t *testing.T) {
	svc, _, dir := newTestService(t)

	file, header := makeMultipartFile(t, "a.pdf", "application/pdf", []byte("data"))
	uploaded, err := svc.UploadFile(context.Background(), header, file, "u1")
	if err != nil {
		t.Fatalf("ошибка загрузки: %v", err)
	}

	// Чужой пользователь не может удалить файл
	if err := svc.DeleteFile(context.Background(), uploaded.UUID, "u2"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("ожидалась ErrAccessDenied, получено %v", err)
	}

	if err := svc.DeleteFile(context.Background(), uploaded.UUID, "u1"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}

	if countDirEntries(t, dir) != 0 {
		t.Error("блоб должен быть удалён с диска")
	}
	if _, err := svc.DownloadFile(context.Background(), uploaded.UUID, "u1"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("файл должен быть удалён, получено %v", err)
	}

	if err := svc.DeleteFile(context.Background(), uploaded.UUID, "u1"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("повторное удаление: ожидалась ErrFileNotFound, получено %v", err)
	}
}

// TestDeleteFile_BlobAlreadyAbsent проверяет, что отсутствие блоба не мешает
// удалению записи.
func TestDeleteFile_BlobAlreadyAbsent(t *testing.T) {
	svc, repo, _ := newTestService(t)

	orphan := &domain.File{
		UUID:        uuid.New(),
		Name:        "ghost.pdf",
		StoragePath: "already-gone.pdf",
		MIMEType:    "application/pdf",
		SizeBytes:   5,
		OwnerID:     "u1",
	}
	if err := repo.Create(context.Background(), orphan); err != nil {
		t.Fatalf("ошибка создания записи: %v", err)
	}

	if err := svc.DeleteFile(context.Background(), orphan.UUID, "u1"); err != nil {
		t.Fatalf("удаление должно пройти несмотря на отсутствие блоба: %v", err)
	}
	if _, err := repo.GetByUUID(context.Background(), orphan.UUID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("запись должна быть удалена")
	}
}

// TestGetUserFiles проверяет выборку только своих файлов, новые первыми.
func TestGetUserFiles(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i, owner := range []string{"u1", "u1", "u2"} {
		file, header := makeMultipartFile(t, fmt.Sprintf("f%d.pdf", i), "application/pdf", []byte("data"))
		if _, err := svc.UploadFile(context.Background(), header, file, owner); err != nil {
			t.Fatalf("ошибка загрузки: %v", err)
		}
	}

	files, err := svc.GetUserFiles(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ошибка выборки: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("ожидалось 2 файла, получено %d", len(files))
	}
	if files[0].CreatedAt.Before(files[1].CreatedAt) {
		t.Error("файлы должны быть отсортированы от новых к старым")
	}
	for _, f := range files {
		if f.OwnerID != "u1" {
			t.Errorf("в выборке чужой файл владельца %s", f.OwnerID)
		}
	}

	// Пользователь без файлов получает пустой список
	empty, err := svc.GetUserFiles(context.Background(), "u3")
	if err != nil {
		t.Fatalf("ошибка выборки: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ожидался пустой список, получено %d", len(empty))
	}
}
