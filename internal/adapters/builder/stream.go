package builder

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/docker/docker/pkg/jsonmessage"
)

var errNoImageID = errors.New("build finished without reporting an image ID")

// readBuildStream drains the engine's JSON progress stream, copying it to out,
// and returns the built image ID. An error message anywhere in the stream
// (a failed RUN step, an unresolvable dependency) fails the build even though
// the HTTP call itself succeeded.
func readBuildStream(body io.Reader, out io.Writer) (string, error) {
	if out == nil {
		out = io.Discard
	}

	var imageID string
	aux := func(msg jsonmessage.JSONMessage) {
		if msg.Aux == nil {
			return
		}
		var result struct {
			ID string `json:"ID"`
		}
		if err := json.Unmarshal(*msg.Aux, &result); err == nil && result.ID != "" {
			imageID = result.ID
		}
	}

	if err := jsonmessage.DisplayJSONMessagesStream(body, out, 0, false, aux); err != nil {
		return "", err
	}
	if imageID == "" {
		return "", errNoImageID
	}
	return imageID, nil
}
