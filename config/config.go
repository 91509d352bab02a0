package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/relloyd/pgmirror/constants"
	"gopkg.in/yaml.v2"
)

var pgmirrorHomeDir string

// Main holds default flag values, keyed by flag name.
var Main *File

func init() {
	Main = NewConfigFileWithDir(mustGetConfigHomeDir(), constants.ConfigFileName)
}

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
}

func (k KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// File is a YAML map of keys to values stored on disk.
// The file is created on the first Set.
type File struct {
	Dirname      string
	FileName     string
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	mu           sync.Mutex
}

func NewConfigFileWithDir(dirName string, filename string) *File {
	return &File{
		Dirname:  dirName,
		FileName: filename,
		FullPath: path.Join(dirName, filename),
		data:     make(map[string]interface{}),
	}
}

// Get will fetch the key from the config File into variable, out, which must be a pointer.
// Scalar values are converted to the type of out, so "5000" can be read into an int and 5000 into a string.
// Return KeyNotFoundError if we can't find the key.
func (c *File) Get(key string, out interface{}) error {
	if reflect.ValueOf(out).Kind() != reflect.Ptr {
		return errors.New("out must be a pointer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) {
		return err
	}
	d, ok := c.data[key]
	if !ok { // if the key was not found...
		return KeyNotFoundError{configFile: c.FullPath, key: key}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: out})
	if err != nil {
		return err
	}
	return dec.Decode(d)
}

// Set saves key and val, creating the file and its directory as required.
func (c *File) Set(key string, val interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) {
		return err
	}
	c.data[key] = val
	return c.save()
}

// Delete removes key from the file.
func (c *File) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) {
		return err
	}
	if _, keyExists := c.data[key]; !keyExists {
		return KeyNotFoundError{configFile: c.FullPath, key: key}
	}
	delete(c.data, key)
	return c.save()
}

// GetAllKeys returns the sorted keys in the file.
// A missing file has no keys.
func (c *File) GetAllKeys() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil && !errors.As(err, &FileNotFoundError{}) {
		return nil, err
	}
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval, nil
}

// loadData reads the file once. The caller holds the lock.
func (c *File) loadData() error {
	if c.dataIsLoaded {
		return nil
	}
	b, err := os.ReadFile(c.FullPath)
	if os.IsNotExist(err) {
		return FileNotFoundError{c.FullPath}
	} else if err != nil {
		return err
	}
	data := make(map[string]interface{})
	if err = yaml.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("error parsing config file %v: %v", c.FullPath, err)
	}
	c.data = data
	c.dataIsLoaded = true
	return nil
}

// save writes all keys to disk. The caller holds the lock.
func (c *File) save() error {
	b, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("error marshalling data for config file %v: %v", c.FullPath, err)
	}
	if err = makeDir(c.Dirname); err != nil {
		return err
	}
	if err = os.WriteFile(c.FullPath, b, 0600); err != nil {
		return err
	}
	c.dataIsLoaded = true
	return nil
}

// String renders the value of every key as key=value lines.
func (c *File) String() string {
	keys, err := c.GetAllKeys()
	if err != nil {
		return err.Error()
	}
	b := strings.Builder{}
	for _, k := range keys {
		var v string
		if err = c.Get(k, &v); err != nil {
			v = fmt.Sprintf("<%v>", err)
		}
		b.WriteString(fmt.Sprintf("%v=%v\n", k, v))
	}
	return b.String()
}
