package model_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicportal/model"
	"musicportal/testsupport"
)

func TestNewObjectKey(t *testing.T) {
	key := model.NewObjectKey(model.ObjectAudio, "My Song.MP3")
	if !strings.HasPrefix(key, "audio/") || !strings.HasSuffix(key, ".mp3") {
		t.Fatalf("unexpected key %q", key)
	}
	if key == model.NewObjectKey(model.ObjectAudio, "My Song.MP3") {
		t.Fatal("keys must be unique")
	}
	if key := model.NewObjectKey(model.ObjectAudio, "noext"); !strings.HasSuffix(key, ".mp3") {
		t.Fatalf("audio key without extension: %q", key)
	}
	if key := model.NewObjectKey(model.ObjectArtwork, "cover.png"); !strings.HasPrefix(key, "artwork/") {
		t.Fatalf("artwork key: %q", key)
	}
}

func TestObjectURLRoundTrip(t *testing.T) {
	u := model.ObjectURL("audio/abc.mp3")
	if u != "/storage/audio/abc.mp3" {
		t.Fatalf("unexpected url %q", u)
	}
	key, ok := model.ObjectKeyFromURL(u)
	if !ok || key != "audio/abc.mp3" {
		t.Fatalf("unexpected key %q ok=%v", key, ok)
	}
	if _, ok := model.ObjectKeyFromURL("https://cdn.example.com/a.mp3"); ok {
		t.Fatal("foreign url must not resolve to a key")
	}
}

func TestStatusValid(t *testing.T) {
	if !model.StatusUnderReview.Valid() || model.ReleaseStatus("PUBLISHED").Valid() {
		t.Fatal("unexpected ReleaseStatus.Valid")
	}
	if !model.RequestProcessing.Valid() || model.RequestStatus("DONE").Valid() {
		t.Fatal("unexpected RequestStatus.Valid")
	}
	if model.RequestProcessing.Terminal() || !model.RequestRejected.Terminal() {
		t.Fatal("unexpected RequestStatus.Terminal")
	}
	if !model.RoleLabel.Valid() || model.Role("ROOT").Valid() {
		t.Fatal("unexpected Role.Valid")
	}
}

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  model.ServiceRequest
		ok   bool
	}{
		{"claim ok", &model.YoutubeClaim{ReleaseID: 1, VideoURL: "https://youtu.be/xyz"}, true},
		{"claim bad url", &model.YoutubeClaim{ReleaseID: 1, VideoURL: "youtu.be/xyz"}, false},
		{"claim no release", &model.YoutubeClaim{VideoURL: "https://youtu.be/xyz"}, false},
		{"oac ok", &model.YoutubeOAC{ArtistName: "Asha", ChannelURL: "https://youtube.com/@asha"}, true},
		{"oac bad topic", &model.YoutubeOAC{ArtistName: "Asha", ChannelURL: "https://youtube.com/@asha", TopicChannelURL: "ftp://x"}, false},
		{"social no platform", &model.SocialLink{ProfileURL: "https://instagram.com/asha"}, false},
		{"profile ok", &model.ProfileLink{Platform: "spotify", ArtistName: "Asha", ProfileURL: "https://open.spotify.com/artist/1", ReleaseID: 3}, true},
		{"label publisher empty", &model.LabelPublisher{}, false},
		{"label only", &model.LabelPublisher{LabelName: "Mango"}, true},
		{"agreement ok", &model.Agreement{Title: "Distribution", SignerName: "Asha", DocumentURL: "/storage/agreement/x.pdf"}, true},
		{"agreement unsigned", &model.Agreement{Title: "Distribution", DocumentURL: "/storage/agreement/x.pdf"}, false},
	}
	for _, tc := range cases {
		err := tc.req.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: Validate() = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}

func TestTrackFromAudioFileReadsTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "01 - blue hour.mp3")
	data := testsupport.MP3(
		testsupport.Frame{ID: "TIT2", Text: "Blue Hour"},
		testsupport.Frame{ID: "TPE1", Text: "Asha"},
		testsupport.Frame{ID: "TCOM", Text: "Ravi"},
	)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	track, err := model.TrackFromAudioFile(path)
	if err != nil {
		t.Fatalf("TrackFromAudioFile: %v", err)
	}
	if track.Title != "Blue Hour" || track.Singer != "Asha" || track.Composer != "Ravi" {
		t.Fatalf("unexpected track: %+v", track)
	}
}

func TestTrackFromAudioFileFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untitled demo.mp3")
	data := append([]byte{0xff, 0xfb, 0x90, 0x64}, make([]byte, 512)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	track, err := model.TrackFromAudioFile(path)
	if err != nil {
		t.Fatalf("TrackFromAudioFile: %v", err)
	}
	if track.Title != "untitled demo" {
		t.Fatalf("unexpected title %q", track.Title)
	}
}

func TestFillFromTagsKeepsExistingCredits(t *testing.T) {
	track := &model.Track{Title: "Given Title"}
	data := testsupport.MP3(
		testsupport.Frame{ID: "TIT2", Text: "Tag Title"},
		testsupport.Frame{ID: "TPE1", Text: "Tag Singer"},
	)
	if err := track.FillFromTags(bytes.NewReader(data)); err != nil {
		t.Fatalf("FillFromTags: %v", err)
	}
	if track.Title != "Given Title" || track.Singer != "Tag Singer" {
		t.Fatalf("unexpected track: %+v", track)
	}
}
