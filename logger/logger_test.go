package logger_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/pgmirror/logger"
)

var _ = Describe("Logger", func() {
	log := logger.NewLogger("test-service", "debug", true)

	It("Should have `test-service` as service name", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Info("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should have warning as log level", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Warn("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["level"]).To(Equal("warning"))
	})

	It("Should add a stack trace to errors when stack dumps are enabled", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		log.Error("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should carry extra fields", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)

		logger.WithField(log, "table", "pub.customer").Info("Testing")
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())

		Expect(actual["table"]).To(Equal("pub.customer"))
		Expect(actual["service"]).To(Equal("test-service"))
		Expect(actual["msg"]).To(Equal("Testing"))
	})

	It("Should append to a log file", func() {
		dir, err := ioutil.TempDir("", "pgmirror-logger")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)
		fileName := filepath.Join(dir, "pgmirror.log")

		f, err := log.OpenLogFile(fileName)
		Expect(err).ToNot(HaveOccurred())
		log.Info("to file")
		Expect(f.Close()).To(Succeed())
		log.SetOutput(os.Stderr)

		b, err := ioutil.ReadFile(fileName)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(ContainSubstring("to file"))
	})
})
