// Package layers implements the layer state and compositing core of a
// puff-print canvas editor: an ordered stack of heterogeneous layers
// (freehand paint, text runs, placed images, relief "puff" elements,
// adjustments and groups) flattened on the CPU into a diffuse surface plus
// companion displacement, normal and height surfaces ready for upload as
// 3D textures.
//
// The package is a library with no UI of its own. Hosts mutate a
// [LayerStore], drive the cooperative [Scheduler], and receive finished
// surfaces through a [TextureConsumer]. All state lives on one logical
// thread; the only shared resource is the [SurfacePool], which recycles
// fixed-size raster surfaces under a memory budget.
//
// Basic usage:
//
//	pool := layers.NewSurfacePool(layers.DefaultConfig().Pool)
//	store := layers.NewLayerStore(pool)
//	id, _ := store.CreateLayer(layers.ContentPaint, "Background")
//	store.AddStroke(id, &layers.BrushStroke{
//		Points: []layers.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
//		Color:  layers.Hex("#000000"),
//		Size:   5,
//	})
//	engine := layers.NewCompositionEngine(store, pool, nil)
//	out := engine.Composite()
//	_ = out // upload out.Diffuse to the 3D pipeline
package layers
