package config

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Property names read from a hive-site.xml.
const (
	MetastoreURIsProperty  = "hive.metastore.uris"
	TransportModeProperty  = "hive.server2.transport.mode"
	ThriftPortProperty     = "hive.server2.thrift.port"
	ThriftHTTPPortProperty = "hive.server2.thrift.http.port"
	ThriftHTTPPathProperty = "hive.server2.thrift.http.path"
)

// Site holds the properties of a Hadoop style site file such as hive-site.xml.
// When a property is listed more than once the first occurrence wins.
type Site struct {
	Path       string
	properties map[string]string
}

type siteProperty struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

type siteDocument struct {
	Properties []siteProperty `xml:"property"`
}

func errPropertyNotFound(name string) error {
	return errors.Errorf("property %s not found", name)
}

// LoadSite reads and parses the site file at path.
func LoadSite(path string) (*Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	site, err := ParseSite(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse %s", path)
	}
	site.Path = path
	return site, nil
}

// ParseSite parses a site document from r.
func ParseSite(r io.Reader) (*Site, error) {
	var doc siteDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.WithStack(err)
	}

	site := &Site{properties: make(map[string]string, len(doc.Properties))}
	for _, p := range doc.Properties {
		name := strings.TrimSpace(p.Name)
		if _, ok := site.properties[name]; ok {
			continue
		}
		site.properties[name] = strings.TrimSpace(p.Value)
	}
	return site, nil
}

// Get returns the value of the named property.
func (s *Site) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.properties[name]
	return v, ok
}

// MetastoreHost extracts the host from the hive.metastore.uris property.
// The host is the text after the last "://" up to the next ":" or "/", so
// for a comma separated list of URIs the last one is used.
func (s *Site) MetastoreHost() (string, error) {
	uri, ok := s.Get(MetastoreURIsProperty)
	if !ok {
		return "", errPropertyNotFound(MetastoreURIsProperty)
	}

	return hostFromURI(uri)
}

func hostFromURI(uri string) (string, error) {
	rest := uri
	if i := strings.LastIndex(rest, "://"); i >= 0 {
		rest = rest[i+len("://"):]
	}
	if i := strings.IndexAny(rest, ":/"); i >= 0 {
		rest = rest[:i]
	}

	host := strings.TrimSpace(rest)
	if host == "" {
		return "", errors.Errorf("no host in %q", uri)
	}
	return host, nil
}
