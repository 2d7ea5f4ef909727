package upload_test

import (
	"io"
	"strings"

	"github.com/frahmantamala/client-portal/internal/upload"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

var _ = Describe("Stager", func() {
	var (
		fs     afero.Fs
		stager *upload.Stager
	)

	BeforeEach(func() {
		var err error
		fs = afero.NewMemMapFs()
		stager, err = upload.NewStager(fs, "/staging")
		Expect(err).NotTo(HaveOccurred())
	})

	countStaged := func() int {
		entries, err := afero.ReadDir(fs, "/staging")
		Expect(err).NotTo(HaveOccurred())
		return len(entries)
	}

	It("should stage content and report its size", func() {
		ref, err := stager.Stage("notes.txt", "text/plain", strings.NewReader("hello"))
		Expect(err).NotTo(HaveOccurred())

		Expect(ref.Name()).To(Equal("notes.txt"))
		Expect(ref.MediaType()).To(Equal("text/plain"))
		Expect(ref.Size()).To(Equal(int64(5)))

		rc, err := ref.Open()
		Expect(err).NotTo(HaveOccurred())
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		Expect(string(b)).To(Equal("hello"))
		Expect(countStaged()).To(Equal(1))
	})

	It("should stage content up to the limit", func() {
		ref, err := stager.StageLimited("notes.txt", "text/plain", strings.NewReader("hello"), 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Size()).To(Equal(int64(5)))
		Expect(countStaged()).To(Equal(1))
	})

	It("should stop one byte past the limit and discard the file", func() {
		src := strings.NewReader(strings.Repeat("x", 1<<20))
		ref, err := stager.StageLimited("big.bin", "application/octet-stream", src, 1024)
		Expect(err).To(MatchError(upload.ErrStageLimit))
		Expect(ref).To(BeNil())
		Expect(src.Len()).To(Equal(1<<20 - 1025))
		Expect(countStaged()).To(BeZero())
	})

	It("should delete the staged file when the candidate is removed", func() {
		ref, err := stager.Stage("a.txt", "text/plain", strings.NewReader("a"))
		Expect(err).NotTo(HaveOccurred())

		batch := upload.NewBatch("p", upload.Limits{}, upload.Deps{})
		Expect(batch.AddCandidates([]upload.FileRef{ref})).To(Succeed())
		batch.RemoveCandidate(batch.Candidates()[0].ID)

		Expect(countStaged()).To(BeZero())
	})

	It("should delete staged files on Clear", func() {
		a, _ := stager.Stage("a.txt", "text/plain", strings.NewReader("a"))
		b, _ := stager.Stage("b.txt", "text/plain", strings.NewReader("b"))

		batch := upload.NewBatch("p", upload.Limits{}, upload.Deps{})
		Expect(batch.AddCandidates([]upload.FileRef{a, b})).To(Succeed())
		batch.Clear()

		Expect(countStaged()).To(BeZero())
	})

	It("should leave adopted files in place", func() {
		Expect(afero.WriteFile(fs, "/home/report.pdf", []byte("pdf"), 0o644)).To(Succeed())

		ref, err := stager.Adopt("/home/report.pdf", "application/pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Name()).To(Equal("report.pdf"))
		Expect(ref.Size()).To(Equal(int64(3)))

		Expect(ref.(upload.Releaser).Release()).To(Succeed())
		exists, _ := afero.Exists(fs, "/home/report.pdf")
		Expect(exists).To(BeTrue())
	})

	It("should refuse to adopt a directory", func() {
		_, err := stager.Adopt("/staging", "")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Registry", func() {
	It("should hand out one batch per project", func() {
		r := upload.NewRegistry(upload.Limits{}, upload.Deps{})

		a := r.Get("p1")
		Expect(r.Get("p1")).To(BeIdenticalTo(a))
		Expect(r.Get("p2")).NotTo(BeIdenticalTo(a))
	})

	It("should forget dropped projects", func() {
		r := upload.NewRegistry(upload.Limits{}, upload.Deps{})
		a := r.Get("p1")
		Expect(a.AddCandidates([]upload.FileRef{upload.NewMemoryFile("x", "text/plain", []byte("x"))})).To(Succeed())

		Expect(r.Drop("p1")).To(BeTrue())
		Expect(a.Candidates()).To(BeEmpty())
		Expect(r.Get("p1")).NotTo(BeIdenticalTo(a))
		Expect(r.Drop("missing")).To(BeFalse())
	})
})
