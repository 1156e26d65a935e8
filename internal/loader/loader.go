// Package loader turns model files into scene graph nodes.
//
// LoadModel runs fetch and parse on a background goroutine and posts the
// completion to an event loop; the node is inserted into the target scene
// and onLoaded is called only when that loop is drained. Failures are
// logged and leave the scene untouched.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-paint/internal/assets"
	"github.com/Faultbox/midgard-paint/internal/eventloop"
	"github.com/Faultbox/midgard-paint/internal/logger"
	"github.com/Faultbox/midgard-paint/pkg/formats"
	"github.com/Faultbox/midgard-paint/pkg/scene"
)

// ErrUnsupportedFormat is returned for file extensions with no parser.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// ErrMalformedModel is reported when a model crashes the parser.
var ErrMalformedModel = errors.New("malformed model")

// DefaultTextureDir is where RSM texture names are resolved first.
const DefaultTextureDir = "data/texture"

// Loader loads models through an asset manager.
type Loader struct {
	assets *assets.Manager
	loop   *eventloop.Loop

	// TextureDir is the asset directory RSM texture names are relative to.
	TextureDir string
}

// New creates a loader. Completions of LoadModel are posted to loop.
func New(am *assets.Manager, loop *eventloop.Loop) *Loader {
	if loop == nil {
		loop = eventloop.New()
	}
	return &Loader{assets: am, loop: loop, TextureDir: DefaultTextureDir}
}

// Loop returns the event loop completions are posted to.
func (l *Loader) Loop() *eventloop.Loop {
	return l.loop
}

// Request tracks one LoadModel call.
type Request struct {
	Path string

	done chan struct{}
	node *scene.Node
	err  error
}

func newRequest(p string) *Request {
	return &Request{Path: p, done: make(chan struct{})}
}

func (r *Request) finish(node *scene.Node, err error) {
	r.node, r.err = node, err
	close(r.done)
}

// Done is closed once the completion ran on the event loop.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Err returns the load error. Valid after Done is closed.
func (r *Request) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Node returns the loaded node, nil on failure. Valid after Done is closed.
func (r *Request) Node() *scene.Node {
	select {
	case <-r.done:
		return r.node
	default:
		return nil
	}
}

// Wait blocks until the request completed or ctx is done. Someone else must
// be draining the event loop.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadModel loads path in the background. When the event loop runs the
// completion, the node is added to target (if non-nil) and onLoaded is
// called with it (if non-nil). On failure the error is logged and neither
// happens. The returned request may be ignored.
func (l *Loader) LoadModel(target *scene.Node, p string, onLoaded func(*scene.Node)) *Request {
	req := newRequest(p)
	logger.Debug("loading model", zap.String("path", p))

	go func() {
		node, err := l.loadSafe(p)
		l.loop.Post(func() {
			if err != nil {
				logger.Error("loading model failed", zap.String("path", p), zap.Error(err))
				req.finish(nil, err)
				return
			}
			if target != nil {
				target.Add(node)
			}
			if onLoaded != nil {
				onLoaded(node)
			}
			req.finish(node, nil)
		})
	}()

	return req
}

// loadSafe is Load with parser panics reported as ErrMalformedModel.
func (l *Loader) loadSafe(p string) (node *scene.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node, err = nil, fmt.Errorf("loading %s: %w: %v", p, ErrMalformedModel, r)
		}
	}()
	return l.Load(p)
}

// Load fetches and parses a model without touching any scene.
func (l *Loader) Load(p string) (*scene.Node, error) {
	if l.assets == nil {
		return nil, fmt.Errorf("loading %s: no asset manager", p)
	}

	ext := strings.ToLower(path.Ext(strings.ReplaceAll(p, "\\", "/")))
	switch ext {
	case ".rsm", ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	data, err := l.assets.Load(p)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", p, err)
	}

	var node *scene.Node
	switch ext {
	case ".rsm":
		rsm, perr := formats.ParseRSM(data)
		if perr != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, perr)
		}
		node = l.buildRSM(rsm, p)
	case ".gltf":
		doc, perr := formats.ParseGLTF(data, l.resolver(p))
		if perr != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, perr)
		}
		node, err = l.buildGLTF(doc, p)
	case ".glb":
		doc, perr := formats.ParseGLB(data, l.resolver(p))
		if perr != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, perr)
		}
		node, err = l.buildGLTF(doc, p)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", p, err)
	}

	logger.Info("model loaded",
		zap.String("path", p),
		zap.Int("meshes", len(node.Meshes())))
	return node, nil
}

// resolver loads URIs relative to the model's directory.
func (l *Loader) resolver(modelPath string) formats.URIResolver {
	dir := modelDir(modelPath)
	return func(uri string) ([]byte, error) {
		return l.assets.Load(joinAsset(dir, uri))
	}
}

func modelDir(p string) string {
	return path.Dir(strings.ReplaceAll(p, "\\", "/"))
}

func modelName(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func joinAsset(dir, name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if dir == "." || dir == "" {
		return name
	}
	return dir + "/" + name
}
