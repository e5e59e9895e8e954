package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// streamCollectingModel invokes the backend in stream mode and concatenates
// the chunks into a single message, keeping the Generate contract for callers
// that want streamed transport without incremental rendering.
type streamCollectingModel struct {
	inner einomodel.BaseChatModel
}

var _ einomodel.BaseChatModel = streamCollectingModel{}

func (s streamCollectingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	reader, err := s.inner.Stream(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var chunks []*schema.Message
	for {
		msg, rerr := reader.Recv()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read completion stream: %w", rerr)
		}
		chunks = append(chunks, msg)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("completion stream returned no content")
	}
	return schema.ConcatMessages(chunks)
}

func (s streamCollectingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return s.inner.Stream(ctx, input, opts...)
}
