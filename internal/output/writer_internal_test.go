package output

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Artifact files", func() {
	const fullDevice = "/dev/full"

	BeforeEach(func() {
		if _, err := os.Stat(fullDevice); err != nil {
			Skip("no " + fullDevice + " on this platform")
		}
	})

	It("Will report values that could not be flushed", func() {
		Expect(writeValues(fullDevice, []float64{1, 2, 3})).ToNot(Succeed())
	})

	It("Will close files it has finished writing", func() {
		path := filepath.Join(GinkgoT().TempDir(), "values.txt")
		Expect(writeValues(path, []float64{0.5, 1.5})).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).To(BeNil())
		Expect(string(data)).To(Equal("0.5\n1.5\n"))
	})
})
