package playback

import (
	"context"
	"strconv"
	"sync"
)

type fakeSub struct {
	cancel func()
}

func (s *fakeSub) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type fakeRemoteClient struct {
	mu sync.Mutex

	loadReqs  []LoadRequest
	seeks     []float64
	trackSets [][]int

	pauseCalls int
	playCalls  int
	stopCalls  int

	loadErr      error
	pauseErr     error
	playErr      error
	stopErr      error
	seekErr      error
	setTracksErr error
	statusErr    error
	positionErr  error

	status   *MediaStatus
	position float64

	statusFns   []func(MediaStatus)
	progressFns []func(float64)
}

func (f *fakeRemoteClient) LoadMedia(_ context.Context, req LoadRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loadReqs = append(f.loadReqs, req)
	return nil
}

func (f *fakeRemoteClient) Play(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	return f.playErr
}

func (f *fakeRemoteClient) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	return f.pauseErr
}

func (f *fakeRemoteClient) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeRemoteClient) Seek(_ context.Context, position float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seekErr != nil {
		return f.seekErr
	}
	f.seeks = append(f.seeks, position)
	return nil
}

func (f *fakeRemoteClient) MediaStatus(context.Context) (*MediaStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeRemoteClient) StreamPosition(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position, f.positionErr
}

func (f *fakeRemoteClient) SetActiveTrackIDs(_ context.Context, trackIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setTracksErr != nil {
		return f.setTracksErr
	}
	f.trackSets = append(f.trackSets, trackIDs)
	return nil
}

func (f *fakeRemoteClient) OnMediaStatusUpdated(fn func(MediaStatus)) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusFns = append(f.statusFns, fn)
	return &fakeSub{}
}

func (f *fakeRemoteClient) OnMediaProgressUpdated(fn func(float64)) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressFns = append(f.progressFns, fn)
	return &fakeSub{}
}

func (f *fakeRemoteClient) lastSeek() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return 0, false
	}
	return f.seeks[len(f.seeks)-1], true
}

type fakeSessionManager struct {
	mu         sync.Mutex
	client     RemoteClient
	startCalls []string
	endCalls   int
	startErr   error
	endErr     error
}

func (f *fakeSessionManager) StartSession(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.startCalls = append(f.startCalls, deviceID)
	return nil
}

func (f *fakeSessionManager) EndCurrentSession(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endErr != nil {
		return f.endErr
	}
	f.endCalls++
	return nil
}

func (f *fakeSessionManager) Client() RemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

type fakeDeviceLister struct {
	devices []Device
}

func (f *fakeDeviceLister) Devices() []Device {
	return f.devices
}

type fakeMediaServer struct {
	mu sync.Mutex

	streamURL    string
	streamErr    error
	subtitles    []SubtitleStream
	subtitlesErr error

	startReports    []PlaybackReport
	progressReports []PlaybackReport
	stoppedReports  []PlaybackReport
}

func (f *fakeMediaServer) StreamURL(MediaItem) (string, error) {
	return f.streamURL, f.streamErr
}

func (f *fakeMediaServer) ImageURL(itemID string) string {
	return "http://jellyfin.local/Items/" + itemID + "/Images/Primary"
}

func (f *fakeMediaServer) SubtitleStreams(context.Context, MediaItem) ([]SubtitleStream, error) {
	return f.subtitles, f.subtitlesErr
}

func (f *fakeMediaServer) SubtitleURL(item MediaItem, streamIndex int) string {
	return "http://jellyfin.local/Videos/" + item.ID + "/Subtitles/" + strconv.Itoa(streamIndex) + "/Stream.vtt"
}

func (f *fakeMediaServer) ReportPlaybackStart(_ context.Context, report PlaybackReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startReports = append(f.startReports, report)
	return nil
}

func (f *fakeMediaServer) ReportPlaybackProgress(_ context.Context, report PlaybackReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressReports = append(f.progressReports, report)
	return nil
}

func (f *fakeMediaServer) ReportPlaybackStopped(_ context.Context, report PlaybackReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stoppedReports = append(f.stoppedReports, report)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (f *fakeNotifier) Error(msg string, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, msg)
}

func (f *fakeNotifier) Info(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, msg)
}

func (f *fakeNotifier) errorMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

type testEnv struct {
	coord   *Coordinator
	client  *fakeRemoteClient
	session *fakeSessionManager
	lister  *fakeDeviceLister
	server  *fakeMediaServer
	notify  *fakeNotifier
}

func newTestEnv() *testEnv {
	client := &fakeRemoteClient{}
	session := &fakeSessionManager{client: client}
	lister := &fakeDeviceLister{}
	server := &fakeMediaServer{streamURL: "http://jellyfin.local/Videos/stream.m3u8"}
	notify := &fakeNotifier{}

	coord := New(server, session, lister, notify, WithSettleDelay(0))

	return &testEnv{
		coord:   coord,
		client:  client,
		session: session,
		lister:  lister,
		server:  server,
		notify:  notify,
	}
}
