package ignore_test

import (
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/pgmirror/ignore"
)

var _ = Describe("Registry", func() {
	var dir string
	var path string

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "pgmirror-ignore")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(dir, "ignored_tables.txt")
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("treats a missing file as empty", func() {
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Len()).To(Equal(0))
		Expect(r.Contains("pub.customer")).To(BeFalse())
	})

	It("skips blank lines and comments and lowercases entries", func() {
		Expect(ioutil.WriteFile(path, []byte("# tables to skip\n\nPUB.Customer\n  pub.order  \n"), 0644)).To(Succeed())
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.List()).To(Equal([]string{"pub.customer", "pub.order"}))
		Expect(r.Contains("PUB.CUSTOMER")).To(BeTrue())
	})

	It("matches bare table names written without a schema", func() {
		Expect(ioutil.WriteFile(path, []byte("Orders\n"), 0644)).To(Succeed())
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Contains("pub.orders")).To(BeTrue())
		Expect(r.Contains("orders")).To(BeTrue())
		Expect(r.Contains("pub.orderline")).To(BeFalse())
		Expect(r.Contains("pub.customer")).To(BeFalse())
	})

	It("persists additions immediately", func() {
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Add("PUB.Invoice")).To(Succeed())
		Expect(r.Contains("pub.invoice")).To(BeTrue())

		b, err := ioutil.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("pub.invoice\n"))

		reloaded, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(reloaded.List()).To(Equal([]string{"pub.invoice"}))
	})

	It("ignores duplicate additions", func() {
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Add("pub.invoice")).To(Succeed())
		Expect(r.Add("PUB.INVOICE")).To(Succeed())
		b, err := ioutil.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("pub.invoice\n"))
		Expect(r.Len()).To(Equal(1))
	})

	It("rejects empty names", func() {
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Add("  ")).NotTo(Succeed())
	})

	It("sorts entries on request", func() {
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Add("pub.zeta")).To(Succeed())
		Expect(r.Add("pub.alpha")).To(Succeed())
		Expect(r.Sorted()).To(Equal([]string{"pub.alpha", "pub.zeta"}))
	})
})

var _ = Describe("Registry with a hand-edited file", func() {
	It("keeps entries on separate lines when the file lacks a final newline", func() {
		dir, err := ioutil.TempDir("", "pgmirror-ignore")
		Expect(err).NotTo(HaveOccurred())
		defer func() {
			_ = os.RemoveAll(dir)
		}()
		path := filepath.Join(dir, "ignored_tables.txt")
		Expect(ioutil.WriteFile(path, []byte("pub.a"), 0644)).To(Succeed())
		r, err := ignore.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Add("pub.b")).To(Succeed())
		b, err := ioutil.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal("pub.a\npub.b\n"))
	})
})
