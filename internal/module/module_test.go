package module

import (
	"fmt"
	"testing"

	"github.com/horgh/ironrelay/internal/action"
	"github.com/horgh/ironrelay/internal/command"
	"github.com/horgh/ironrelay/internal/modeset"
)

type fakeModule struct {
	name         string
	core         bool
	channelModes []ChannelModeSpec
	loadErr      error
	loadCalled   bool
	unloadCalled bool
}

func (f *fakeModule) Name() string                     { return f.name }
func (f *fakeModule) Core() bool                        { return f.core }
func (f *fakeModule) RequiredOnAllServers() bool        { return false }
func (f *fakeModule) ChannelModes() []ChannelModeSpec   { return f.channelModes }
func (f *fakeModule) UserModes() []UserModeSpec         { return nil }
func (f *fakeModule) Actions() []ActionSpec             { return nil }
func (f *fakeModule) UserCommands() []command.UserCommand     { return nil }
func (f *fakeModule) ServerCommands() []command.ServerCommand { return nil }
func (f *fakeModule) Load() error                       { f.loadCalled = true; return f.loadErr }
func (f *fakeModule) Unload() error                     { f.unloadCalled = true; return nil }
func (f *fakeModule) FullUnload() error                 { return nil }
func (f *fakeModule) Rehash() error                     { return nil }
func (f *fakeModule) HookIRCd(ircd interface{})         {}
func (f *fakeModule) VerifyConfig(raw map[string]interface{}) error { return nil }

func newLoader() *Loader {
	return NewLoader(action.NewBus(), modeset.NewRegistry(), command.NewRegistry())
}

func TestLoadRegistersModes(t *testing.T) {
	l := newLoader()
	m := &fakeModule{
		name:         "testmod",
		channelModes: []ChannelModeSpec{{Letter: 'z', Category: modeset.NoParam}},
	}

	if err := l.Load(m); err != nil {
		t.Fatalf("Load() error: %s", err)
	}
	if !m.loadCalled {
		t.Fatal("expected Load() hook to run")
	}

	if _, ok := l.Modes.ChannelMode('z'); !ok {
		t.Fatal("expected channel mode z to be registered")
	}
	if !l.Loaded("testmod") {
		t.Fatal("expected module to be loaded")
	}
}

func TestLoadRejectsDuplicateModeAtomically(t *testing.T) {
	l := newLoader()

	first := &fakeModule{name: "first", channelModes: []ChannelModeSpec{{Letter: 'z', Category: modeset.NoParam}}}
	if err := l.Load(first); err != nil {
		t.Fatalf("Load(first) error: %s", err)
	}

	second := &fakeModule{name: "second", channelModes: []ChannelModeSpec{{Letter: 'z', Category: modeset.NoParam}}}
	if err := l.Load(second); err == nil {
		t.Fatal("expected collision error loading second module")
	}

	if l.Loaded("second") {
		t.Fatal("second module should not be registered as loaded after a failed load")
	}
}

func TestLoadUnwindsOnModuleLoadError(t *testing.T) {
	l := newLoader()

	m := &fakeModule{
		name:         "failing",
		channelModes: []ChannelModeSpec{{Letter: 'q', Category: modeset.NoParam}},
		loadErr:      fmt.Errorf("boom"),
	}

	if err := l.Load(m); err == nil {
		t.Fatal("expected Load() to fail")
	}

	if _, ok := l.Modes.ChannelMode('q'); ok {
		t.Fatal("expected mode q to be unregistered after failed load")
	}
	if l.Loaded("failing") {
		t.Fatal("failing module should not remain loaded")
	}
}

func TestUnloadThenReload(t *testing.T) {
	l := newLoader()
	m := &fakeModule{name: "reloadable", channelModes: []ChannelModeSpec{{Letter: 'x', Category: modeset.NoParam}}}

	if err := l.Load(m); err != nil {
		t.Fatalf("Load() error: %s", err)
	}
	if err := l.Reload(m); err != nil {
		t.Fatalf("Reload() error: %s", err)
	}

	if !m.unloadCalled {
		t.Fatal("expected Unload() hook to run during reload")
	}
	if _, ok := l.Modes.ChannelMode('x'); !ok {
		t.Fatal("expected mode x to be present again after reload")
	}
}

func TestCoreModuleCannotUnload(t *testing.T) {
	l := newLoader()
	m := &fakeModule{name: "core", core: true}

	if err := l.Load(m); err != nil {
		t.Fatalf("Load() error: %s", err)
	}
	if err := l.Unload("core", false); err == nil {
		t.Fatal("expected error unloading a core module")
	}
}
