package gldevice

import (
	"fmt"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

var glInitOnce sync.Once
var glInitErr error

// Init loads the OpenGL function pointers. A context must be current on the
// calling thread. Later calls return the first result.
func Init(log *zap.Logger) error {
	glInitOnce.Do(func() {
		glInitErr = gl.Init()
		if glInitErr != nil {
			glInitErr = fmt.Errorf("failed to initialize OpenGL: %w", glInitErr)
			return
		}
		log.Info("OpenGL initialized",
			zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
			zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	})
	return glInitErr
}
