package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_drivevault() {
    local cur prev words cword
    _init_completion || return

    local commands="init set get rm keys clear find passwd gen crack diff status compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        set|get|rm|keys|clear|find|diff)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-ns -deep -force" -- "$cur"))
            fi
            ;;
        gen)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-kind -length -words -sep -charset" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "key word char" -- "$cur"))
            fi
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _drivevault drivevault
`

const zshCompletion = `#compdef drivevault

_drivevault() {
    local -a commands
    commands=(
        'init:Create a .drivevault vault in current directory'
        'set:Store a value under a key'
        'get:Print a stored value'
        'rm:Remove a key'
        'keys:List keys'
        'clear:Remove all keys in a namespace'
        'find:Search keys and values'
        'passwd:Change vault password'
        'gen:Generate a password'
        'crack:Estimate time to crack'
        'diff:Compare a stored value with a local file'
        'status:Show vault status'
        'compact:Compact vault to reclaim disk space'
        'keyring:Manage password in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'drivevault commands' commands
            ;;
        args)
            case "${words[2]}" in
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                gen)
                    _values 'kind' key word char
                    ;;
                help)
                    _describe -t commands 'drivevault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
                diff)
                    _arguments '*:file:_files'
                    ;;
            esac
            ;;
    esac
}

_drivevault "$@"
`

const fishCompletion = `# drivevault fish completions

set -l commands init set get rm keys clear find passwd gen crack diff status compact keyring help completion

complete -c drivevault -f

# Commands
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a .drivevault vault'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a set -d 'Store a value'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a get -d 'Print a stored value'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove a key'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a keys -d 'List keys'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a clear -d 'Remove all keys in a namespace'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a find -d 'Search keys and values'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change vault password'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a gen -d 'Generate a password'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a crack -d 'Estimate time to crack'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with a local file'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c drivevault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# gen kinds
complete -c drivevault -n "__fish_seen_subcommand_from gen" -a "key word char"

# diff takes a local file
complete -c drivevault -n "__fish_seen_subcommand_from diff" -F

# keyring subcommands
complete -c drivevault -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c drivevault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c drivevault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
