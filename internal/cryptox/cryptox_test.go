package cryptox_test

import (
	"strings"
	"testing"

	"github.com/frahmantamala/client-portal/internal/cryptox"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestCryptox(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cryptox Suite")
}

type record struct {
	PatientName string   `json:"patientName"`
	Medications []string `json:"medications"`
	Age         int      `json:"age"`
}

var _ = Describe("Codec", func() {
	var codec *cryptox.Codec

	BeforeEach(func() {
		var err error
		codec, err = cryptox.New("unit-test-secret")
		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("round trips serializable values",
		func(in any, out any) {
			token, err := codec.Encode(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(codec.Decode(token, out)).To(Succeed())
		},
		Entry("string", "John Doe", new(string)),
		Entry("number", 42, new(int)),
		Entry("struct", record{PatientName: "Jane", Medications: []string{"a", "b"}, Age: 30}, new(record)),
	)

	It("should return the original struct", func() {
		in := record{PatientName: "Jane", Medications: []string{"aspirin"}, Age: 51}
		token, err := codec.Encode(in)
		Expect(err).NotTo(HaveOccurred())

		var out record
		Expect(codec.Decode(token, &out)).To(Succeed())
		Expect(out).To(Equal(in))
	})

	It("should use a fresh nonce per call", func() {
		a, _ := codec.Encode("same")
		b, _ := codec.Encode("same")
		Expect(a).NotTo(Equal(b))
	})

	It("should round trip raw bytes", func() {
		content := []byte("patient chart\x00\x01")
		token, err := codec.EncodeBytes(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(token).NotTo(ContainSubstring("patient"))

		out, err := codec.DecodeBytes(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(content))
	})

	It("should reject tokens from another key", func() {
		other, err := cryptox.New("another-secret")
		Expect(err).NotTo(HaveOccurred())

		token, _ := other.Encode("x")
		var out string
		Expect(codec.Decode(token, &out)).To(HaveOccurred())
	})

	It("should reject malformed tokens", func() {
		var out string
		Expect(codec.Decode("not base64!!", &out)).To(MatchError(cryptox.ErrMalformedToken))
		Expect(codec.Decode("AAAA", &out)).To(MatchError(cryptox.ErrMalformedToken))
	})

	It("should derive the same key from the same secret", func() {
		Expect(cryptox.DeriveKey("s")).To(Equal(cryptox.DeriveKey("s")))
		Expect(cryptox.DeriveKey("s")).To(HaveLen(32))
	})
})

var _ = Describe("Digest", func() {
	It("should be hex sha256", func() {
		Expect(cryptox.Digest("abc")).To(Equal("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"))
	})

	It("should not contain the input", func() {
		d := cryptox.Digest("MRN-12345")
		Expect(d).To(HaveLen(64))
		Expect(strings.Contains(d, "12345")).To(BeFalse())
	})
})
