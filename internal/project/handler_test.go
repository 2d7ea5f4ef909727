package project_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strconv"
	"strings"

	projectDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/project"
	"github.com/frahmantamala/client-portal/internal/core/events"
	"github.com/frahmantamala/client-portal/internal/cryptox"
	"github.com/frahmantamala/client-portal/internal/project"
	projectPostgres "github.com/frahmantamala/client-portal/internal/project/postgres"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
	"github.com/frahmantamala/client-portal/internal/upload"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type part struct {
	name    string
	content string
}

func multipartBody(parts ...part) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		h.Set("Content-Type", "text/plain")
		w, err := mw.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = w.Write([]byte(p.content))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())
	return body, mw.FormDataContentType()
}

// countingReader tracks how much of a request body the server consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ = Describe("Project Handlers", func() {
	var (
		router  chi.Router
		service *project.Service
		fs      afero.Fs
		actor   *session.Session
	)

	do := func(method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != nil {
			req = httptest.NewRequest(method, path, body)
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req = req.WithContext(session.WithSession(req.Context(), actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	doJSON := func(method, path string, v interface{}) *httptest.ResponseRecorder {
		raw, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		return do(method, path, bytes.NewBuffer(raw), "application/json")
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&projectDatamodel.Project{}, &projectDatamodel.ProjectFile{})).To(Succeed())

		codec, err := cryptox.New("handler-test-key")
		Expect(err).NotTo(HaveOccurred())

		bus := events.NewEventBus(slogger)
		registry := upload.NewRegistry(upload.Limits{MaxFileSize: 1024, MaxTotalSize: 2048, ProgressStep: 50}, upload.Deps{
			Encoder: codec,
			Bus:     bus,
			Logger:  slogger,
		})

		fs = afero.NewMemMapFs()
		stager, err := upload.NewStager(fs, "/staging")
		Expect(err).NotTo(HaveOccurred())

		service = project.NewService(projectPostgres.NewProjectRepository(db), registry, slogger)
		service.RegisterEventHandlers(bus)

		base := transport.NewBaseHandler(slogger)
		h := project.NewHandler(base, service)
		uh := project.NewUploadHandler(base, service, registry, stager)

		router = chi.NewRouter()
		router.Get("/projects", h.ListProjects)
		router.Post("/projects", h.CreateProject)
		router.Get("/projects/{id}", h.GetProject)
		router.Put("/projects/{id}", h.UpdateProject)
		router.Delete("/projects/{id}", h.DeleteProject)
		router.Get("/projects/{id}/uploads", uh.GetBatch)
		router.Post("/projects/{id}/uploads", uh.AddFiles)
		router.Delete("/projects/{id}/uploads", uh.ClearBatch)
		router.Delete("/projects/{id}/uploads/{fileID}", uh.RemoveFile)
		router.Post("/projects/{id}/uploads/submit", uh.Submit)

		actor = session.Default()
	})

	createProject := func() project.ProjectResponse {
		w := doJSON(http.MethodPost, "/projects", validDTO())
		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp project.ProjectResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp
	}

	Describe("CRUD", func() {
		It("creates, reads, updates and deletes a project", func() {
			created := createProject()
			Expect(created.Deadline).To(Equal("2024-04-15"))

			w := do(http.MethodGet, "/projects/1", nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			dto := validDTO()
			dto.Status = project.StatusOnHold
			w = doJSON(http.MethodPut, "/projects/1", dto)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(project.StatusOnHold))

			w = do(http.MethodGet, "/projects", nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var list project.ProjectsResponse
			Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
			Expect(list.Projects).To(HaveLen(1))

			w = do(http.MethodDelete, "/projects/1", nil, "")
			Expect(w.Code).To(Equal(http.StatusNoContent))

			w = do(http.MethodGet, "/projects/1", nil, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns field errors for an invalid body", func() {
			dto := validDTO()
			dto.Name = "  "
			w := doJSON(http.MethodPost, "/projects", dto)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring(`"field":"name"`))
		})

		It("returns 403 when the session cannot edit", func() {
			actor = session.New("3", "Client", "c@x", "client", []string{session.PermViewProjects}, session.AccessNone)
			w := doJSON(http.MethodPost, "/projects", validDTO())
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("rejects a non-numeric id", func() {
			w := do(http.MethodGet, "/projects/abc", nil, "")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Uploads", func() {
		BeforeEach(func() {
			createProject()
		})

		It("returns 404 for an unknown project", func() {
			w := do(http.MethodGet, "/projects/9/uploads", nil, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("stages files and lists them", func() {
			body, ct := multipartBody(part{"brief.txt", "hello"}, part{"patient_notes.txt", "secret"})
			w := do(http.MethodPost, "/projects/1/uploads", body, ct)
			Expect(w.Code).To(Equal(http.StatusCreated))

			var batch project.BatchResponse
			Expect(json.NewDecoder(w.Body).Decode(&batch)).To(Succeed())
			Expect(batch.Files).To(HaveLen(2))
			Expect(batch.TotalSize).To(Equal(int64(11)))

			staged, err := afero.ReadDir(fs, "/staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(staged).To(HaveLen(2))
		})

		It("rejects an oversized file and removes what it staged", func() {
			body, ct := multipartBody(part{"small.txt", "ok"}, part{"big.bin", strings.Repeat("x", 1500)})
			w := do(http.MethodPost, "/projects/1/uploads", body, ct)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("big.bin"))

			staged, err := afero.ReadDir(fs, "/staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(staged).To(BeEmpty())

			w = do(http.MethodGet, "/projects/1/uploads", nil, "")
			var batch project.BatchResponse
			Expect(json.NewDecoder(w.Body).Decode(&batch)).To(Succeed())
			Expect(batch.Files).To(BeEmpty())
			Expect(batch.Error).To(ContainSubstring("exceeds"))
		})

		It("stops reading a part once it passes the file ceiling", func() {
			body, ct := multipartBody(part{"big.bin", strings.Repeat("x", 8*1024*1024)})
			size := int64(body.Len())
			counter := &countingReader{r: body}

			req := httptest.NewRequest(http.MethodPost, "/projects/1/uploads", counter)
			req.Header.Set("Content-Type", ct)
			req = req.WithContext(session.WithSession(req.Context(), actor))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("big.bin"))
			Expect(w.Body.String()).To(ContainSubstring("FILE_SIZE_EXCEEDED"))
			Expect(counter.n).To(BeNumerically("<", 64*1024))
			Expect(counter.n).To(BeNumerically("<", size))

			staged, err := afero.ReadDir(fs, "/staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(staged).To(BeEmpty())

			w = do(http.MethodGet, "/projects/1/uploads", nil, "")
			var batch project.BatchResponse
			Expect(json.NewDecoder(w.Body).Decode(&batch)).To(Succeed())
			Expect(batch.Files).To(BeEmpty())
			Expect(batch.Error).To(ContainSubstring("exceeds"))
		})

		It("counts staged files toward the total ceiling while receiving", func() {
			body, ct := multipartBody(part{"a.txt", strings.Repeat("a", 1000)})
			w := do(http.MethodPost, "/projects/1/uploads", body, ct)
			Expect(w.Code).To(Equal(http.StatusCreated))

			body, ct = multipartBody(
				part{"b.txt", strings.Repeat("b", 1000)},
				part{"c.txt", strings.Repeat("c", 100)},
			)
			w = do(http.MethodPost, "/projects/1/uploads", body, ct)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("TOTAL_SIZE_EXCEEDED"))

			staged, err := afero.ReadDir(fs, "/staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(staged).To(HaveLen(1))

			w = do(http.MethodGet, "/projects/1/uploads", nil, "")
			var batch project.BatchResponse
			Expect(json.NewDecoder(w.Body).Decode(&batch)).To(Succeed())
			Expect(batch.Files).To(HaveLen(1))
			Expect(batch.TotalSize).To(Equal(int64(1000)))
			Expect(batch.Error).To(ContainSubstring("Total file size exceeds"))
		})

		It("returns the statuses the API document lists for staging and clearing", func() {
			doc, err := openapi3.NewLoader().LoadFromFile("../../api/openapi.yml")
			Expect(err).NotTo(HaveOccurred())
			uploads := doc.Paths.Value("/projects/{id}/uploads")
			Expect(uploads).NotTo(BeNil())

			body, ct := multipartBody(part{"a.txt", "a"})
			w := do(http.MethodPost, "/projects/1/uploads", body, ct)
			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(uploads.Post.Responses.Value(strconv.Itoa(w.Code))).NotTo(BeNil())

			w = do(http.MethodDelete, "/projects/1/uploads", nil, "")
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(uploads.Delete.Responses.Map()).To(HaveLen(1))
			Expect(uploads.Delete.Responses.Value(strconv.Itoa(w.Code))).NotTo(BeNil())
		})

		It("removes a single staged file", func() {
			body, ct := multipartBody(part{"a.txt", "a"}, part{"b.txt", "b"})
			w := do(http.MethodPost, "/projects/1/uploads", body, ct)
			var batch project.BatchResponse
			Expect(json.NewDecoder(w.Body).Decode(&batch)).To(Succeed())

			w = do(http.MethodDelete, "/projects/1/uploads/"+batch.Files[0].ID, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(json.NewDecoder(w.Body).Decode(&batch)).To(Succeed())
			Expect(batch.Files).To(HaveLen(1))
			Expect(batch.Files[0].Name).To(Equal("b.txt"))
		})

		It("refuses to submit an empty batch", func() {
			w := do(http.MethodPost, "/projects/1/uploads/submit", nil, "")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("EMPTY_BATCH"))
		})

		It("streams progress and attaches the files to the project", func() {
			body, ct := multipartBody(part{"brief.txt", "hello"}, part{"Medical_History.txt", "secret"})
			w := do(http.MethodPost, "/projects/1/uploads", body, ct)
			Expect(w.Code).To(Equal(http.StatusCreated))

			w = do(http.MethodPost, "/projects/1/uploads/submit", nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/x-ndjson"))

			var stream []upload.Event
			scanner := bufio.NewScanner(w.Body)
			for scanner.Scan() {
				var ev upload.Event
				Expect(json.Unmarshal(scanner.Bytes(), &ev)).To(Succeed())
				stream = append(stream, ev)
			}

			// 0, 50, 100 per file plus the completion
			Expect(stream).To(HaveLen(7))
			last := stream[len(stream)-1]
			Expect(last.Kind).To(Equal(upload.EventBatchCompleted))
			Expect(last.Files).To(HaveLen(2))

			p, err := service.Get(actor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Files).To(HaveLen(2))
			for _, f := range p.Files {
				Expect(f.Encoded).To(Equal(f.Name == "Medical_History.txt"))
				Expect(f.Checksum).To(HaveLen(64))
			}

			staged, err := afero.ReadDir(fs, "/staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(staged).To(BeEmpty())
		})

		It("clears the batch", func() {
			body, ct := multipartBody(part{"a.txt", "a"})
			do(http.MethodPost, "/projects/1/uploads", body, ct)

			w := do(http.MethodDelete, "/projects/1/uploads", nil, "")
			Expect(w.Code).To(Equal(http.StatusNoContent))

			staged, err := afero.ReadDir(fs, "/staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(staged).To(BeEmpty())
		})
	})
})
