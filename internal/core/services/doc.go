// Package services holds the application services behind the driving
// ports: ingestion, semantic segmentation, fused multimodal search and
// document browsing. Each service depends only on driven port
// interfaces, so storage, embedding and normalisation are swapped at the
// composition root.
package services
