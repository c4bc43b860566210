package service

import (
	"context"

	"imageresizer/bridge"
	"imageresizer/catalog"
)

type imageCatalog interface {
	Record(ctx context.Context, img catalog.StoredImage) error
}

type sizeCache interface {
	Get(ctx context.Context, req bridge.SizeRequest) (*bridge.SizeResult, bool)
	Set(ctx context.Context, req bridge.SizeRequest, res *bridge.SizeResult)
}
