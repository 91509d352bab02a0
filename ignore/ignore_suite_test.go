package ignore_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestIgnore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ignore Registry Suite")
}
