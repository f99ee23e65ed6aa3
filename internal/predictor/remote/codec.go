package remote

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rmathena79/breaker-bot/internal/aggregate"
	"github.com/rmathena79/breaker-bot/internal/predictor"
)

// Wire messages are google.protobuf.Struct values:
//
//	request:  {"mode": "text"|"key", "chunks": [[x, ...], ...]}
//	response: {"mode": "text"|"key", "predictions": [[[y, ...], ...], ...]}
const (
	fieldMode        = "mode"
	fieldChunks      = "chunks"
	fieldPredictions = "predictions"
)

func encodeRequest(req predictor.Request) (*structpb.Struct, error) {
	chunks := make([]any, len(req.Chunks))
	for i, c := range req.Chunks {
		chunks[i] = numbers(c)
	}
	return structpb.NewStruct(map[string]any{
		fieldMode:   string(req.Mode),
		fieldChunks: chunks,
	})
}

func decodeRequest(s *structpb.Struct) (predictor.Request, error) {
	mode, err := decodeMode(s)
	if err != nil {
		return predictor.Request{}, err
	}
	chunks, err := decodeMatrix(s.GetFields()[fieldChunks], fieldChunks)
	if err != nil {
		return predictor.Request{}, err
	}
	return predictor.Request{Mode: mode, Chunks: chunks}, nil
}

func encodeBatch(batch aggregate.Batch) (*structpb.Struct, error) {
	preds := make([]any, len(batch.Predictions))
	for i, m := range batch.Predictions {
		rows := make([]any, len(m))
		for r, row := range m {
			rows[r] = numbers(row)
		}
		preds[i] = rows
	}
	return structpb.NewStruct(map[string]any{
		fieldMode:        string(batch.Mode),
		fieldPredictions: preds,
	})
}

func decodeBatch(s *structpb.Struct) (aggregate.Batch, error) {
	mode, err := decodeMode(s)
	if err != nil {
		return aggregate.Batch{}, err
	}
	list := s.GetFields()[fieldPredictions].GetListValue()
	if list == nil {
		return aggregate.Batch{}, fmt.Errorf("%q must be a list", fieldPredictions)
	}
	batch := aggregate.Batch{Mode: mode, Predictions: make([][][]float64, len(list.GetValues()))}
	for i, v := range list.GetValues() {
		m, err := decodeMatrix(v, fmt.Sprintf("%s[%d]", fieldPredictions, i))
		if err != nil {
			return aggregate.Batch{}, err
		}
		batch.Predictions[i] = m
	}
	return batch, nil
}

func decodeMode(s *structpb.Struct) (aggregate.Mode, error) {
	v, ok := s.GetFields()[fieldMode]
	if !ok {
		return "", fmt.Errorf("missing %q", fieldMode)
	}
	return aggregate.ParseMode(v.GetStringValue())
}

func decodeMatrix(v *structpb.Value, path string) ([][]float64, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%s must be a list", path)
	}
	out := make([][]float64, len(list.GetValues()))
	for i, rowValue := range list.GetValues() {
		row := rowValue.GetListValue()
		if row == nil {
			return nil, fmt.Errorf("%s[%d] must be a list", path, i)
		}
		out[i] = make([]float64, len(row.GetValues()))
		for j, cell := range row.GetValues() {
			num, ok := cell.GetKind().(*structpb.Value_NumberValue)
			if !ok {
				return nil, fmt.Errorf("%s[%d][%d] must be a number", path, i, j)
			}
			out[i][j] = num.NumberValue
		}
	}
	return out, nil
}

func numbers(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
