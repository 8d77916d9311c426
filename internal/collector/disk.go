// Disk usage collector: gathers per-partition usage of local filesystems.
package collector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/Guliveer/watchpost/internal/models"
)

// skippedFSTypes are virtual, in-memory and network filesystems; their usage
// says nothing about local storage and they are never checked against the
// disk limit.
var skippedFSTypes = map[string]bool{
	"autofs": true, "binfmt_misc": true, "bpf": true, "cgroup": true,
	"cgroup2": true, "configfs": true, "debugfs": true, "devfs": true,
	"devtmpfs": true, "efivarfs": true, "fusectl": true, "hugetlbfs": true,
	"mqueue": true, "nsfs": true, "nullfs": true, "overlay": true,
	"proc": true, "procfs": true, "pstore": true, "ramfs": true,
	"securityfs": true, "squashfs": true, "sysfs": true, "tmpfs": true,
	"tracefs": true, "fuse.snapfuse": true,

	"9p": true, "afs": true, "ceph": true, "cifs": true, "davfs2": true,
	"fuse.sshfs": true, "fuse.rclone": true, "fuse.s3fs": true,
	"glusterfs": true, "nfs": true, "nfs4": true, "smbfs": true,
}

// systemMountPrefixes are OS-internal mount points hidden from the user.
var systemMountPrefixes = []string{
	"/System/Volumes/",
	"/private/var/vm",
}

// includePartition decides whether a partition is monitored.
// Partitions without a filesystem type (empty drives) are skipped.
func includePartition(p disk.PartitionStat) bool {
	if p.Fstype == "" || skippedFSTypes[p.Fstype] {
		return false
	}
	for _, prefix := range systemMountPrefixes {
		if strings.HasPrefix(p.Mountpoint, prefix) {
			return false
		}
	}
	return true
}

// DiskCollector collects disk usage metrics per mount point.
type DiskCollector struct {
	logger *zap.Logger
}

// NewDiskCollector creates a new disk collector.
func NewDiskCollector(logger *zap.Logger) *DiskCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskCollector{logger: logger}
}

// Name returns the collector identifier.
func (c *DiskCollector) Name() string { return NameDisk }

// Collect gathers disk usage for all monitored partitions.
// Inaccessible partitions are skipped.
func (c *DiskCollector) Collect(ctx context.Context) (interface{}, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	results := make([]models.DiskUsage, 0, len(partitions))
	for _, p := range partitions {
		if !includePartition(p) {
			continue
		}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			c.logger.Debug("Skipping inaccessible partition",
				zap.String("mount", p.Mountpoint),
				zap.Error(err))
			continue
		}
		if usage.Total == 0 {
			continue
		}
		results = append(results, models.DiskUsage{
			Device:  p.Device,
			Mount:   p.Mountpoint,
			Fs:      p.Fstype,
			Total:   usage.Total,
			Used:    usage.Used,
			Percent: usage.UsedPercent,
		})
	}

	return results, nil
}

// IsAvailable returns true: disk metrics are available on all platforms.
func (c *DiskCollector) IsAvailable() bool { return true }
