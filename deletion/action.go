// Package deletion defers destruction of GPU objects until the GPU can no
// longer reference them.
//
// Work is queued as tagged [Action] values: a kind plus a raw handle. Only
// [KindFunc] carries a closure, for cleanup that is not a single device
// destroy call. A queue is flushed by its owner once the fence covering the
// pushing frame has been observed signaled.
//
// A Queue is not safe for concurrent use.
package deletion

import (
	"encoding/json"
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
)

// Kind selects which device destroy call an Action performs.
type Kind uint8

// Action kinds.
const (
	KindFunc Kind = iota
	KindFence
	KindSemaphore
	KindCommandPool
	KindSwapchain
	KindImageView
	KindRenderPass
	KindFramebuffer
	KindPipeline
	KindShaderModule
	KindTexture
)

var kindNames = [...]string{
	KindFunc:         "Func",
	KindFence:        "Fence",
	KindSemaphore:    "Semaphore",
	KindCommandPool:  "CommandPool",
	KindSwapchain:    "Swapchain",
	KindImageView:    "ImageView",
	KindRenderPass:   "RenderPass",
	KindFramebuffer:  "Framebuffer",
	KindPipeline:     "Pipeline",
	KindShaderModule: "ShaderModule",
	KindTexture:      "Texture",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("deletion: unknown kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("deletion: unknown kind %q", b)
}

// Action is one deferred destruction.
//
// Handle is the raw device handle. Label is for diagnostics. Fn is only
// used by KindFunc and is not serialized.
type Action struct {
	Kind   Kind   `json:"kind"`
	Handle uint64 `json:"handle,omitempty"`
	Label  string `json:"label,omitempty"`

	fn func()
}

// Destroy returns an action that destroys handle with the device call for
// kind.
func Destroy[H ~uint64](kind Kind, handle H) Action {
	return Action{Kind: kind, Handle: uint64(handle)}
}

// Func returns an action that runs fn.
func Func(label string, fn func()) Action {
	return Action{Kind: KindFunc, Label: label, fn: fn}
}

// WithLabel returns a copy of a with label set.
func (a Action) WithLabel(label string) Action {
	a.Label = label
	return a
}

func (a Action) String() string {
	if a.Label != "" {
		return fmt.Sprintf("%s(%d %q)", a.Kind, a.Handle, a.Label)
	}
	return fmt.Sprintf("%s(%d)", a.Kind, a.Handle)
}

// Run performs the action against dev.
func (a Action) Run(dev gpucore.Device) error {
	switch a.Kind {
	case KindFunc:
		if a.fn == nil {
			return fmt.Errorf("deletion: %s has no function", a)
		}
		a.fn()
	case KindFence:
		dev.DestroyFence(gpucore.FenceID(a.Handle))
	case KindSemaphore:
		dev.DestroySemaphore(gpucore.SemaphoreID(a.Handle))
	case KindCommandPool:
		dev.DestroyCommandPool(gpucore.CommandPoolID(a.Handle))
	case KindSwapchain:
		dev.DestroySwapchain(gpucore.SwapchainID(a.Handle))
	case KindImageView:
		dev.DestroyImageView(gpucore.ImageViewID(a.Handle))
	case KindRenderPass:
		dev.DestroyRenderPass(gpucore.RenderPassID(a.Handle))
	case KindFramebuffer:
		dev.DestroyFramebuffer(gpucore.FramebufferID(a.Handle))
	case KindPipeline:
		dev.DestroyPipeline(gpucore.PipelineID(a.Handle))
	case KindShaderModule:
		dev.DestroyShaderModule(gpucore.ShaderModuleID(a.Handle))
	case KindTexture:
		dev.DestroyTexture(gpucore.TextureID(a.Handle))
	default:
		return fmt.Errorf("deletion: unknown kind %d", a.Kind)
	}
	return nil
}

// MarshalActions encodes actions as JSON for logging and replay.
// KindFunc actions keep only their label.
func MarshalActions(actions []Action) ([]byte, error) {
	return json.Marshal(actions)
}

// UnmarshalActions decodes actions produced by MarshalActions.
func UnmarshalActions(data []byte) ([]Action, error) {
	var out []Action
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("deletion: decode actions: %w", err)
	}
	return out, nil
}
