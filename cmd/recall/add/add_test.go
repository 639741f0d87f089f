package addcmder

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("readContent", func() {
	pipe := func(input string) *os.File {
		r, w, err := os.Pipe()
		Expect(err).NotTo(HaveOccurred())
		_, err = w.WriteString(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())
		DeferCleanup(r.Close)
		return r
	}

	It("joins arguments", func() {
		content, err := readContent([]string{"Had", "coffee"}, pipe(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("Had coffee"))
	})

	It("reads piped stdin when there are no arguments", func() {
		content, err := readContent(nil, pipe("  Renew the passport\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("Renew the passport"))
	})

	It("rejects empty stdin", func() {
		_, err := readContent(nil, pipe("\n"))
		Expect(err).To(MatchError(ContainSubstring("no memory content")))
	})
})
