package configcmder

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("display", func() {
	It("masks api keys", func() {
		Expect(display("embedding.api_key", "sk-secret-1234")).To(Equal("****1234"))
		Expect(display("vector_store.api_key", "abc")).To(Equal("****"))
	})

	It("leaves other values and empty keys alone", func() {
		Expect(display("embedding.model", "embeddinggemma")).To(Equal("embeddinggemma"))
		Expect(display("embedding.api_key", "")).To(BeEmpty())
	})
})
