package audiofilestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"musicportal/model"
)

// this file turns a local directory of mp3 files into stored objects
// plus track metadata read from their tags.

// ImportedFile is one audio file copied into the store.
type ImportedFile struct {
	Path  string
	Key   string
	Track *model.Track
}

// ImportDir copies every mp3 under dir into the store, in walk order,
// and reads its tags. Track.AudioURL is set to the object's URL.
// Files that fail are logged and skipped.
func (a *AudioFileStore) ImportDir(dir string) ([]ImportedFile, error) {
	logger.WithField("dir", dir).Info("ImportDir: start")

	ch, err := enumMusicFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("ImportDir: enumMusicFiles failed: %w", err)
	}

	var imported []ImportedFile
	for path := range ch {
		logger.WithField("path", path).Debug("ImportDir: importFile")
		f, err := a.importFile(path)
		if err != nil {
			logger.WithField("path", path).WithError(err).Error("ImportDir: importFile failed")
			continue
		}
		imported = append(imported, *f)
	}

	logger.WithField("dir", dir).WithField("files", len(imported)).Info("ImportDir: done")
	return imported, nil
}

func (a *AudioFileStore) importFile(path string) (*ImportedFile, error) {
	track, err := model.TrackFromAudioFile(path)
	if err != nil {
		return nil, fmt.Errorf("TrackFromAudioFile failed: %w", err)
	}

	key := model.NewObjectKey(model.ObjectAudio, path)
	if err := a.copyIn(path, key); err != nil {
		return nil, err
	}
	track.AudioURL = model.ObjectURL(key)

	return &ImportedFile{Path: path, Key: key, Track: track}, nil
}

// copyIn copies the file into the store. The stored object does not
// follow later changes to the source.
func (a *AudioFileStore) copyIn(src, key string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.Put(key, f)
	return err
}

// isMusicFile returns true if the file is a music file.
// It checks the file extension. Only mp3 is accepted by the portal.
func isMusicFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".mp3"
}

// enumMusicFiles enumerates all the music files in the directory.
// It returns a channel of the file paths.
func enumMusicFiles(dir string) (chan string, error) {
	if dir == "" {
		return nil, errors.New("empty dir")
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, errors.New("not a dir")
	}

	ch := make(chan string, 3)

	go func() {
		defer close(ch)

		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			// skip non-music files
			if d.IsDir() || !isMusicFile(path) {
				return nil
			}
			ch <- path
			return nil
		})

		if err != nil {
			logger.WithField("dir", dir).WithError(err).Error("enumMusicFiles: WalkDir failed")
		}
	}()

	return ch, nil
}
