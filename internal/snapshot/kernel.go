package snapshot

import "regexp"

// kernelNamePattern recognizes the Debian/Ubuntu kernel package families:
// the core image, headers, and modules packages, their signed and unsigned
// variants, and the flavor metapackages (generic, lowlatency, virtual, and
// the cloud-vendor builds). linux-firmware and linux-libc-dev deliberately
// fall outside the pattern: updating them does not require a restart into a
// new kernel.
var kernelNamePattern = regexp.MustCompile(
	`^linux-(image|headers|modules|signed|image-unsigned|generic|lowlatency|virtual|cloud|kvm|aws|azure|gcp|gke|oracle|oem)(-|$)`,
)

// KernelRelated reports whether name belongs to a kernel package family.
func KernelRelated(name string) bool {
	return kernelNamePattern.MatchString(name)
}

// KernelChanged reports whether any change in the set touches a kernel
// package. False for an empty set.
func (cs ChangeSet) KernelChanged() bool {
	for _, change := range cs {
		if KernelRelated(change.Name) {
			return true
		}
	}
	return false
}
