// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/utility/kar"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Name
}

var (
	author   = flag.String("author", currentUserName(), "Set the author of the package when compressing")
	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the given archive into the destination directory")
	compress = flag.String("c", "", "Compress the given file/folder")
	dst      = flag.String("f", "out.kar", "Destination file, or directory when extracting (defaults to the working directory)")
	silent   = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	var err error
	switch {
	case *extract != "" && *compress != "":
		err = errors.New("only one operation at a time")
	case *extract != "":
		dir := "."
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "f" {
				dir = *dst
			}
		})
		err = extractFiles(*extract, dir)
	case *compress != "":
		err = compressFiles(*compress, *dst)
	default:
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.WithError(err).Fatal("kar failed")
	}
}

// compressFiles packs every file below root. Names are stored relative to
// root with forward slashes, the way assets looks them up.
func compressFiles(root, dstFile string) error {
	if _, err := os.Stat(dstFile); err == nil {
		return errors.Newf("destination file %s exists, will not overwrite", dstFile)
	}

	builder, err := kar.NewBuilder(kar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer builder.Close()

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		name, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if name == "." {
			name = filepath.Base(path)
		}
		log.WithField("file", name).Info("Adding")
		return builder.AddFile(filepath.ToSlash(name), path)
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", root)
	}

	f, err := os.Create(dstFile)
	if err != nil {
		return err
	}
	n, err := builder.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "writing %s", dstFile)
	}
	log.WithFields(log.Fields{
		"files": builder.Len(),
		"bytes": n,
	}).Info("Archive written")
	return nil
}

func extractFiles(archive, dstDir string) error {
	r, err := mmap.Open(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	a, err := kar.Open(r)
	if err != nil {
		return errors.Wrapf(err, "opening %s", archive)
	}
	header := a.Header()
	log.WithFields(log.Fields{
		"author":  header.Author,
		"version": header.Version,
		"created": time.Unix(header.DateCreated, 0),
	}).Info("Extracting")

	for _, name := range a.Names() {
		data, err := a.ReadAll(name)
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		rel := filepath.Clean(filepath.FromSlash(name))
		if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return errors.Newf("refusing to extract %q outside of %s", name, dstDir)
		}
		path := filepath.Join(dstDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := ioutil.WriteFile(path, data, 0644); err != nil {
			return err
		}
		log.WithField("file", name).Info("Extracted")
	}
	return nil
}
