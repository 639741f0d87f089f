package servecmder

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("newLogger", func() {
	var stdout bytes.Buffer

	BeforeEach(func() {
		stdout.Reset()
	})

	It("writes readable text when stdout is not a terminal", func() {
		l := newLogger(&stdout, false, false, false, nil)
		l.Info("listening", "addr", ":8080")

		Expect(stdout.String()).To(ContainSubstring("level=INFO"))
		Expect(stdout.String()).To(ContainSubstring("msg=listening"))
	})

	It("uses the pretty handler on a terminal", func() {
		l := newLogger(&stdout, true, false, false, nil)
		l.Info("listening", "addr", ":8080")

		out := stdout.String()
		Expect(out).To(ContainSubstring("INFO"))
		Expect(out).To(ContainSubstring("listening"))
		Expect(out).NotTo(ContainSubstring("level="))
		Expect(out).NotTo(HavePrefix("{"))
	})

	It("prefers JSON over the pretty handler when asked", func() {
		l := newLogger(&stdout, true, true, false, nil)
		l.Info("listening")

		var entry map[string]any
		Expect(json.Unmarshal(stdout.Bytes(), &entry)).To(Succeed())
		Expect(entry["msg"]).To(Equal("listening"))
	})

	It("also writes JSON records to the log file", func() {
		var file bytes.Buffer
		l := newLogger(&stdout, true, false, true, &file)
		l.Debug("memory added", "id", "m1")

		Expect(stdout.String()).To(ContainSubstring("memory added"))

		lines := strings.Split(strings.TrimSpace(file.String()), "\n")
		Expect(lines).To(HaveLen(1))
		var entry map[string]any
		Expect(json.Unmarshal([]byte(lines[0]), &entry)).To(Succeed())
		Expect(entry["msg"]).To(Equal("memory added"))
		Expect(entry["id"]).To(Equal("m1"))
		Expect(entry["level"]).To(Equal("DEBUG"))
	})
})
